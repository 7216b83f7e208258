// Package token issues and validates the stateless access/refresh JWT pair.
// No token state is kept server side; ownership scope is re-derived from the
// uid claim on every request.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/faktur/internal/config"
	"go.uber.org/zap"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 24 * time.Hour
	// DefaultRefreshTokenTTL defines the fallback validity period for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	typeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrWrongType    = errors.New("wrong_token_type")
)

// Config bundles the configuration required to build an Issuer.
type Config struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Pair is an access/refresh credential pair returned to clients.
type Pair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Issuer signs and validates the credential pair.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an Issuer from the given configuration.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret must be provided")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &Issuer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// NewIssuerFromConfig builds the Issuer from application config. Outside
// production a missing secret falls back to an ephemeral random one so local
// runs work out of the box; issued tokens then die with the process.
func NewIssuerFromConfig(appCfg config.Config, log *zap.Logger) (*Issuer, error) {
	secret := appCfg.AuthJWTSecret
	if secret == "" {
		if appCfg.IsProduction() {
			return nil, errors.New("token: AUTH_JWT_SECRET is required in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = base64.RawURLEncoding.EncodeToString(buf)
		log.Warn("AUTH_JWT_SECRET not set, using ephemeral signing key")
	}

	return NewIssuer(Config{
		Secret:          secret,
		Issuer:          appCfg.AppName,
		AccessTokenTTL:  appCfg.AccessTokenTTL,
		RefreshTokenTTL: appCfg.RefreshTokenTTL,
	})
}

// IssuePair signs a fresh access/refresh pair for the user.
func (i *Issuer) IssuePair(userID snowflake.ID) (Pair, error) {
	now := i.now()

	access, accessExp, err := i.sign(userID, "", now, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := i.sign(userID, typeRefresh, now, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) sign(userID snowflake.ID, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID:    userID.String(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccess parses an access token and returns the authenticated user ID.
func (i *Issuer) VerifyAccess(raw string) (snowflake.ID, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return 0, err
	}
	if claims.TokenType != "" {
		return 0, ErrWrongType
	}
	return i.userID(claims)
}

// VerifyRefresh parses a refresh token and returns the user ID it rotates for.
func (i *Issuer) VerifyRefresh(raw string) (snowflake.ID, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return 0, err
	}
	if claims.TokenType != typeRefresh {
		return 0, ErrWrongType
	}
	return i.userID(claims)
}

func (i *Issuer) parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if i.issuer != "" && claims.Issuer != i.issuer {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (i *Issuer) userID(claims *Claims) (snowflake.ID, error) {
	id, err := snowflake.ParseString(claims.UserID)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
