package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/config"
	identitydomain "github.com/smallbiznis/faktur/internal/identity/domain"
	"github.com/smallbiznis/faktur/internal/identity/password"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureDefaultAdmin seeds a staff user for self-hosted installs so the API
// is usable right after first boot. Existing users are left untouched.
func EnsureDefaultAdmin(db *gorm.DB, cfg config.BootstrapConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if cfg.AdminPassword == "" {
		return errors.New("bootstrap admin password is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user identitydomain.User
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}

		username := email
		if at := strings.Index(email, "@"); at > 0 {
			username = email[:at]
		}

		now := time.Now().UTC()
		user = identitydomain.User{
			ID:           node.Generate(),
			Email:        email,
			Username:     username,
			IsActive:     true,
			IsStaff:      true,
			PasswordHash: hashed,
			Metadata:     datatypes.JSONMap{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(&user).Error
	})
}
