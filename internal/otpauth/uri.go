// Package otpauth converts between stored tokens and otpauth:// key URIs and
// renders them as QR codes.
package otpauth

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
)

const Scheme = "otpauth://"

// IsURI reports whether s looks like an otpauth key URI.
func IsURI(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), Scheme)
}

// Parse reads an otpauth://totp/ URI into a cleaned token. Only 30 second,
// 6 digit, SHA1 keys are accepted.
func Parse(uri string) (models.Token, error) {
	uri = strings.TrimSpace(uri)
	if !IsURI(uri) {
		return models.Token{}, fmt.Errorf("%w: not an otpauth uri", common.ErrInvalidSecret)
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: %v", common.ErrInvalidSecret, err)
	}
	if key.Type() != "totp" {
		return models.Token{}, fmt.Errorf("%w: %q", common.ErrUnsupportedOTPType, key.Type())
	}
	if key.Period() != 30 || key.Digits() != otp.DigitsSix || key.Algorithm() != otp.AlgorithmSHA1 {
		return models.Token{}, fmt.Errorf("%w: only 30s/6 digit/SHA1 keys are supported", common.ErrUnsupportedOTPType)
	}

	return models.Token{
		Issuer: key.Issuer(),
		Name:   key.AccountName(),
		Secret: key.Secret(),
	}.Clean()
}

// Build renders a token as an otpauth://totp/ URI.
func Build(t models.Token) (string, error) {
	raw, err := models.DecodeSecret(t.Secret)
	if err != nil {
		return "", err
	}

	issuer := strings.TrimSpace(t.Issuer)
	if issuer == "" {
		issuer = "Unknown"
	}
	account := strings.TrimSpace(t.Name)
	if account == "" {
		account = issuer
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      30,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}
