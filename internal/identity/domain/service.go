package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*User, error)
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error)

	// RequestPasswordReset mints a single-use reset token for the account
	// with the given email. The raw token is returned to the caller so the
	// mail collaborator can deliver it; it is stored only as a hash.
	// A missing account is not an error so the endpoint cannot be used to
	// probe for registered emails.
	RequestPasswordReset(ctx context.Context, email string) (string, *User, error)
	ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error
}

type RegisterRequest struct {
	Email     string
	Username  string
	Password  string
	Password2 string
	FirstName string
	LastName  string
}

type LoginRequest struct {
	Email    string
	Password string
}

// UpdateProfileRequest carries partial profile updates for the caller's own
// record. Nil fields are left untouched; email and ID are immutable here.
type UpdateProfileRequest struct {
	UserID    snowflake.ID
	FirstName *string
	LastName  *string
	Username  *string
}

type ConfirmPasswordResetRequest struct {
	Token        string
	NewPassword  string
	NewPassword2 string
}
