package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/identity/domain"
	"github.com/smallbiznis/faktur/internal/identity/password"
	"github.com/smallbiznis/faktur/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	resetTokenBytes = 32
	resetTokenTTL   = time.Hour
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	ResetRepo domain.ResetTokenRepository
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	resetRepo domain.ResetTokenRepository
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("identity.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		resetRepo: p.ResetRepo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}

	if req.Password != req.Password2 {
		return nil, domain.ErrPasswordMismatch
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = localPart(email)
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	if err := password.ValidateStrength(req.Password, email, username, firstName, lastName); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
		PasswordHash: hashed,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	if req.UserID == 0 {
		return nil, domain.ErrUserNotFound
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, domain.ErrInvalidUsername
		}
		fields["username"] = username
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.UpdateFields(ctx, req.UserID, fields); err != nil {
			return nil, err
		}
	}

	return s.repo.FindByID(ctx, req.UserID)
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, *domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return "", nil, domain.ErrInvalidEmail
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Indistinguishable from success; no account probing.
			return "", nil, nil
		}
		return "", nil, err
	}

	rawToken, err := newResetToken()
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	record := &domain.PasswordResetToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashResetToken(rawToken),
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resetRepo.CreateToken(ctx, record); err != nil {
		return "", nil, err
	}

	s.log.Info("password reset requested", zap.String("user_id", user.ID.String()))
	return rawToken, user, nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, req domain.ConfirmPasswordResetRequest) error {
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		return domain.ErrInvalidResetToken
	}

	if req.NewPassword != req.NewPassword2 {
		return domain.ErrPasswordMismatch
	}

	now := time.Now().UTC()
	record, err := s.resetRepo.FindActiveByHash(ctx, hashResetToken(raw), now)
	if err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, record.UserID)
	if err != nil {
		return err
	}

	if err := password.ValidateStrength(req.NewPassword, user.Email, user.Username, user.FirstName, user.LastName); err != nil {
		return err
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"password_hash": hashed,
		"updated_at":    now,
	}); err != nil {
		return err
	}

	return s.resetRepo.MarkUsed(ctx, record.ID, now)
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", domain.ErrInvalidEmail
	}
	return trimmed, nil
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
