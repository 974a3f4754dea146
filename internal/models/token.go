// Package models defines the token record stored by the engine and the
// rules a shared secret must satisfy.
package models

import (
	"encoding/base32"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

// MinSecretLength is the minimum number of Base32 characters (padding
// excluded) a secret must have.
const MinSecretLength = 16

var base32Secret = regexp.MustCompile(`^[A-Z2-7]+$`)

// Token is one TOTP account. The id is not part of the record; the store
// keeps tokens in a map keyed by id.
type Token struct {
	Issuer  string    `json:"issuer"`
	Name    string    `json:"name"`
	Secret  string    `json:"secret"`
	Created time.Time `json:"created"`
}

// Label renders "Issuer: Name", or just the issuer when the name is empty.
func (t Token) Label() string {
	if t.Name == "" {
		return t.Issuer
	}
	return t.Issuer + ": " + t.Name
}

// NormalizeSecret removes whitespace and upper-cases s. Padding is kept so
// validation sees what the user typed.
func NormalizeSecret(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// ValidateSecret reports whether s is an acceptable canonical secret:
// after stripping '=' padding it uses only A-Z and 2-7 and is at least
// MinSecretLength characters long.
func ValidateSecret(s string) error {
	clean := strings.ReplaceAll(s, "=", "")
	if !base32Secret.MatchString(clean) {
		return fmt.Errorf("%w: secret must use the Base32 alphabet A-Z, 2-7", common.ErrInvalidSecret)
	}
	if len(clean) < MinSecretLength {
		return fmt.Errorf("%w: secret must be at least %d characters", common.ErrInvalidSecret, MinSecretLength)
	}
	return nil
}

// Clean normalizes the secret and fills defaults for empty issuer/name.
// It returns an error when the secret does not validate.
func (t Token) Clean() (Token, error) {
	t.Secret = NormalizeSecret(t.Secret)
	if err := ValidateSecret(t.Secret); err != nil {
		return Token{}, err
	}
	t.Issuer = strings.TrimSpace(t.Issuer)
	t.Name = strings.TrimSpace(t.Name)
	if t.Issuer == "" {
		t.Issuer = "Unknown"
	}
	return t, nil
}

// DecodeSecret returns the raw key bytes of a Base32 secret. Padding and
// case do not matter.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.TrimRight(NormalizeSecret(secret), "=")
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSecret, err)
	}
	return raw, nil
}
