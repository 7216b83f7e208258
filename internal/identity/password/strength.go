package password

import (
	"strings"
	"unicode"

	"github.com/smallbiznis/faktur/internal/identity/domain"
)

const minLength = 8

// commonPasswords is a short deny-list of passwords seen in every breach
// corpus. Checked case-insensitively after trimming.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwerty123":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"princess":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
	"admin123":   {},
	"letmein1":   {},
	"trustno1":   {},
	"dragon123":  {},
	"monkey123":  {},
	"abc12345":   {},
}

// ValidateStrength applies the account password rules: minimum length, not
// purely numeric, not a known-common password, and not too similar to the
// caller's identity attributes (email, username, names).
func ValidateStrength(password string, attributes ...string) error {
	if len(password) < minLength {
		return domain.ErrPasswordTooShort
	}

	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return domain.ErrPasswordNumeric
	}

	lowered := strings.ToLower(strings.TrimSpace(password))
	if _, ok := commonPasswords[lowered]; ok {
		return domain.ErrPasswordCommon
	}

	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if len(attr) < 4 {
			continue
		}
		// The local part of an email counts as an attribute on its own.
		if at := strings.IndexByte(attr, '@'); at > 0 {
			if local := attr[:at]; len(local) >= 4 && tooSimilar(lowered, local) {
				return domain.ErrPasswordSimilar
			}
		}
		if tooSimilar(lowered, attr) {
			return domain.ErrPasswordSimilar
		}
	}

	return nil
}

func tooSimilar(password, attribute string) bool {
	return strings.Contains(password, attribute) || strings.Contains(attribute, password)
}
