package password

import (
	"testing"

	"github.com/smallbiznis/faktur/internal/identity/domain"
)

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		attributes []string
		want       error
	}{
		{name: "valid", password: "sturdy-password-1", want: nil},
		{name: "too short", password: "short1", want: domain.ErrPasswordTooShort},
		{name: "numeric only", password: "986145327410", want: domain.ErrPasswordNumeric},
		{name: "common password", password: "password1", want: domain.ErrPasswordCommon},
		{name: "common password mixed case", password: "Password1", want: domain.ErrPasswordCommon},
		{
			name:       "contains username",
			password:   "alicewonder99",
			attributes: []string{"alicewonder"},
			want:       domain.ErrPasswordSimilar,
		},
		{
			name:       "matches email local part",
			password:   "frank.castle",
			attributes: []string{"frank.castle@example.com"},
			want:       domain.ErrPasswordSimilar,
		},
		{
			name:       "short attribute ignored",
			password:   "bobsleigh-run-4",
			attributes: []string{"bob"},
			want:       nil,
		},
		{
			name:       "unrelated attribute",
			password:   "sturdy-password-1",
			attributes: []string{"grace@example.com", "Grace", "Hopper"},
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateStrength(tt.password, tt.attributes...); got != tt.want {
				t.Fatalf("ValidateStrength(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestHashVerifyRoundtrip(t *testing.T) {
	encoded, err := Hash("sturdy-password-1")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if encoded == "sturdy-password-1" {
		t.Fatal("expected encoded hash, got plaintext")
	}

	if !Verify("sturdy-password-1", encoded) {
		t.Fatal("expected matching password to verify")
	}
	if Verify("wrong-password", encoded) {
		t.Fatal("expected wrong password to fail")
	}
	if Verify("sturdy-password-1", "not-a-hash") {
		t.Fatal("expected malformed hash to fail")
	}
}
