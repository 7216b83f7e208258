package token

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, cfg Config) *Issuer {
	t.Helper()

	if cfg.Secret == "" {
		cfg.Secret = "test-secret"
	}
	issuer, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	return issuer
}

func TestIssuePairRoundtrip(t *testing.T) {
	issuer := newTestIssuer(t, Config{Issuer: "faktur"})

	pair, err := issuer.IssuePair(42)
	if err != nil {
		t.Fatalf("failed to issue pair: %v", err)
	}

	uid, err := issuer.VerifyAccess(pair.Access)
	if err != nil {
		t.Fatalf("failed to verify access: %v", err)
	}
	if uid != 42 {
		t.Fatalf("expected uid 42, got %d", uid)
	}

	uid, err = issuer.VerifyRefresh(pair.Refresh)
	if err != nil {
		t.Fatalf("failed to verify refresh: %v", err)
	}
	if uid != 42 {
		t.Fatalf("expected uid 42, got %d", uid)
	}
}

func TestVerifyRejectsSwappedTypes(t *testing.T) {
	issuer := newTestIssuer(t, Config{})

	pair, err := issuer.IssuePair(42)
	if err != nil {
		t.Fatalf("failed to issue pair: %v", err)
	}

	if _, err := issuer.VerifyAccess(pair.Refresh); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType for refresh-as-access, got %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.Access); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType for access-as-refresh, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Now()
	clock := now
	issuer := newTestIssuer(t, Config{
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Clock:           func() time.Time { return clock },
	})

	pair, err := issuer.IssuePair(42)
	if err != nil {
		t.Fatalf("failed to issue pair: %v", err)
	}

	clock = now.Add(2 * time.Minute)
	if _, err := issuer.VerifyAccess(pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired access, got %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.Refresh); err != nil {
		t.Fatalf("expected refresh still valid, got %v", err)
	}

	clock = now.Add(2 * time.Hour)
	if _, err := issuer.VerifyRefresh(pair.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired refresh, got %v", err)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	other := newTestIssuer(t, Config{Issuer: "other-service"})
	issuer := newTestIssuer(t, Config{Issuer: "faktur"})

	pair, err := other.IssuePair(42)
	if err != nil {
		t.Fatalf("failed to issue pair: %v", err)
	}

	if _, err := issuer.VerifyAccess(pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestVerifyRejectsTamperedSecret(t *testing.T) {
	signer := newTestIssuer(t, Config{Secret: "secret-a"})
	verifier := newTestIssuer(t, Config{Secret: "secret-b"})

	pair, err := signer.IssuePair(42)
	if err != nil {
		t.Fatalf("failed to issue pair: %v", err)
	}

	if _, err := verifier.VerifyAccess(pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := verifier.VerifyAccess(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}
