// Package auth manages the optional PIN/password protection of the token
// store: the persisted AuthConfig, credential verification and the
// process-local session with its re-authentication timeout.
package auth

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

// Type is the kind of credential protecting the store.
type Type string

const (
	TypeNone     Type = "none"
	TypePIN      Type = "pin"
	TypePassword Type = "password"
)

const (
	MinPINLength      = 4
	MinPasswordLength = 6
)

// Config is the persisted auth configuration:
//
//	{"auth_type": "pin", "pin_hash": "$argon2id$...", "timeout_minutes": 5}
//
// At most one of PINHash and PasswordHash is set. TimeoutMinutes == 0 means
// sessions never expire.
type Config struct {
	AuthType       Type   `json:"auth_type"`
	PINHash        string `json:"pin_hash,omitempty"`
	PasswordHash   string `json:"password_hash,omitempty"`
	TimeoutMinutes int    `json:"timeout_minutes"`
}

// Protected reports whether a credential is configured.
func (c Config) Protected() bool {
	return c.AuthType == TypePIN || c.AuthType == TypePassword
}

func (c Config) hash() string {
	switch c.AuthType {
	case TypePIN:
		return c.PINHash
	case TypePassword:
		return c.PasswordHash
	default:
		return ""
	}
}

func (c Config) validate() error {
	switch c.AuthType {
	case TypeNone:
		if c.PINHash != "" || c.PasswordHash != "" {
			return errors.New("hash present while auth_type is none")
		}
	case TypePIN:
		if c.PINHash == "" || c.PasswordHash != "" {
			return errors.New("auth_type pin requires exactly pin_hash")
		}
	case TypePassword:
		if c.PasswordHash == "" || c.PINHash != "" {
			return errors.New("auth_type password requires exactly password_hash")
		}
	default:
		return fmt.Errorf("unknown auth_type %q", c.AuthType)
	}
	if c.TimeoutMinutes < 0 {
		return errors.New("timeout_minutes must not be negative")
	}
	return nil
}

// ValidatePIN accepts digits only, at least MinPINLength of them.
func ValidatePIN(pin string) error {
	if len(pin) < MinPINLength {
		return fmt.Errorf("%w: PIN must be at least %d digits", common.ErrInvalidCredential, MinPINLength)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: PIN must contain digits only", common.ErrInvalidCredential)
		}
	}
	return nil
}

// ValidatePassword accepts any password of at least MinPasswordLength
// characters that is not only whitespace.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidCredential, MinPasswordLength)
	}
	for _, r := range password {
		if !unicode.IsSpace(r) {
			return nil
		}
	}
	return fmt.Errorf("%w: password must not be blank", common.ErrInvalidCredential)
}
