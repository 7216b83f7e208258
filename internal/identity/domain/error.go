package domain

import "errors"

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrEmailExists        = errors.New("email_exists")
	ErrPasswordMismatch   = errors.New("password_mismatch")
	ErrPasswordTooShort   = errors.New("password_too_short")
	ErrPasswordNumeric    = errors.New("password_entirely_numeric")
	ErrPasswordCommon     = errors.New("password_too_common")
	ErrPasswordSimilar    = errors.New("password_too_similar")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInactiveUser       = errors.New("inactive_user")
	ErrInvalidResetToken  = errors.New("invalid_reset_token")
	ErrInvalidUsername    = errors.New("invalid_username")
)
