package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type ResetTokenRepository interface {
	CreateToken(ctx context.Context, token *PasswordResetToken) error
	FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*PasswordResetToken, error)
	MarkUsed(ctx context.Context, id snowflake.ID, usedAt time.Time) error
}
