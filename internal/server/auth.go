package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/faktur/internal/authctx"
	identitydomain "github.com/smallbiznis/faktur/internal/identity/domain"
)

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.Register(c.Request.Context(), identitydomain.RegisterRequest{
		Email:     strings.TrimSpace(req.Email),
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		Password2: req.Password2,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":   user,
		"tokens": pair,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.Login(c.Request.Context(), identitydomain.LoginRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tokens": pair,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshToken rotates a refresh token for a fresh pair. The account is
// re-checked so disabled users lose access at the next rotation.
func (s *Server) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := s.issuer.VerifyRefresh(strings.TrimSpace(req.Refresh))
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.identitySvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !user.IsActive {
		AbortWithError(c, identitydomain.ErrInactiveUser)
		return
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": pair})
}

// Logout acknowledges the client discarding its tokens. Tokens are stateless
// so there is nothing to revoke server side.
func (s *Server) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}

func (s *Server) GetProfile(c *gin.Context) {
	userID, ok := authctx.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.identitySvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
}

func (s *Server) UpdateProfile(c *gin.Context) {
	userID, ok := authctx.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.UpdateProfile(c.Request.Context(), identitydomain.UpdateProfileRequest{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset always answers the same way so the endpoint cannot be
// used to probe for registered emails. The raw token is returned in the
// response body in place of an outbound mail delivery.
func (s *Server) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	token, _, err := s.identitySvc.RequestPasswordReset(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"detail": "if the email exists, a reset token has been issued"}
	if token != "" {
		resp["reset_token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

type passwordResetConfirmRequest struct {
	Token        string `json:"token"`
	NewPassword  string `json:"new_password"`
	NewPassword2 string `json:"new_password2"`
}

func (s *Server) ConfirmPasswordReset(c *gin.Context) {
	var req passwordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.identitySvc.ConfirmPasswordReset(c.Request.Context(), identitydomain.ConfirmPasswordResetRequest{
		Token:        strings.TrimSpace(req.Token),
		NewPassword:  req.NewPassword,
		NewPassword2: req.NewPassword2,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "password has been reset"})
}

func isIdentityValidationError(err error) bool {
	switch {
	case errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrEmailExists),
		errors.Is(err, identitydomain.ErrInvalidUsername),
		errors.Is(err, identitydomain.ErrPasswordMismatch),
		errors.Is(err, identitydomain.ErrPasswordTooShort),
		errors.Is(err, identitydomain.ErrPasswordNumeric),
		errors.Is(err, identitydomain.ErrPasswordCommon),
		errors.Is(err, identitydomain.ErrPasswordSimilar),
		errors.Is(err, identitydomain.ErrInvalidResetToken):
		return true
	default:
		return false
	}
}
