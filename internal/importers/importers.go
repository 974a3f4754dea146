// Package importers reads token exports produced by other authenticator
// apps. Parsers only validate and normalize; adding the tokens (and
// duplicate checks) is left to the keeper.
package importers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/otpauth"
)

// ErrUnknownFormat is returned when data matches none of the known formats.
var ErrUnknownFormat = errors.New("unknown import format")

type Format string

const (
	FormatTwoFAS              Format = "2fas"
	FormatWinOTP              Format = "winotp"
	FormatAuthenticatorPlugin Format = "plugin"
)

// Result holds the tokens that passed validation and counters for the rest.
type Result struct {
	Tokens []models.Token
	// Skipped counts entries that were not token records at all.
	Skipped int
	// FailedValidation counts token records with a missing or bad secret.
	FailedValidation int
}

// Detect guesses the format of data.
func Detect(data []byte) (Format, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", ErrUnknownFormat
	}
	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnknownFormat, err)
		}
		if _, ok := probe["services"]; ok {
			return FormatTwoFAS, nil
		}
		return FormatWinOTP, nil
	}
	if otpauth.IsURI(string(trimmed)) || bytes.Contains(trimmed, []byte("otpauth://")) {
		return FormatAuthenticatorPlugin, nil
	}
	return "", ErrUnknownFormat
}

// Parse detects the format of data and parses it.
func Parse(data []byte) (Format, Result, error) {
	format, err := Detect(data)
	if err != nil {
		return "", Result{}, err
	}
	var res Result
	switch format {
	case FormatTwoFAS:
		res, err = ParseTwoFAS(data)
	case FormatWinOTP:
		res, err = ParseWinOTP(data)
	default:
		res, err = ParseAuthenticatorPlugin(data)
	}
	return format, res, err
}

type twoFASBackup struct {
	Services *[]json.RawMessage `json:"services"`
}

type twoFASService struct {
	Name   string          `json:"name"`
	Secret *string         `json:"secret"`
	OTP    json.RawMessage `json:"otp"`
}

type twoFASOTP struct {
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// ParseTwoFAS reads a 2FAS backup: {"services":[{"secret","name","otp":{...}}]}.
func ParseTwoFAS(data []byte) (Result, error) {
	var backup twoFASBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		return Result{}, fmt.Errorf("2fas: invalid json: %w", err)
	}
	if backup.Services == nil {
		return Result{}, errors.New("2fas: expected an object with a services list")
	}

	var res Result
	for _, raw := range *backup.Services {
		var svc twoFASService
		if err := json.Unmarshal(raw, &svc); err != nil || svc.Secret == nil || !isObject(svc.OTP) {
			res.Skipped++
			continue
		}
		var details twoFASOTP
		if err := json.Unmarshal(svc.OTP, &details); err != nil {
			res.FailedValidation++
			continue
		}

		name := details.Account
		if name == "" {
			name = svc.Name
		}
		tok, err := models.Token{Issuer: details.Issuer, Name: name, Secret: *svc.Secret}.Clean()
		if err != nil {
			res.FailedValidation++
			continue
		}
		res.Tokens = append(res.Tokens, tok)
	}
	return res, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

type winOTPEntry struct {
	Issuer string `json:"issuer"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// ParseWinOTP reads the plain token map {"<id>": {"issuer","name","secret"}}
// that Export writes. Entries come back ordered by id.
func ParseWinOTP(data []byte) (Result, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return Result{}, fmt.Errorf("winotp: expected a json object: %w", err)
	}
	if entries == nil {
		return Result{}, errors.New("winotp: expected a json object")
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var res Result
	for _, id := range ids {
		var e winOTPEntry
		if err := json.Unmarshal(entries[id], &e); err != nil || !isObject(entries[id]) || e.Secret == "" {
			res.Skipped++
			continue
		}
		tok, err := models.Token{Issuer: e.Issuer, Name: e.Name, Secret: e.Secret}.Clean()
		if err != nil {
			res.FailedValidation++
			continue
		}
		res.Tokens = append(res.Tokens, tok)
	}
	return res, nil
}

// ParseAuthenticatorPlugin reads one otpauth:// URI per line, as exported by
// the Authenticator browser extension. Blank and non-otpauth lines are
// skipped; URIs that do not parse count as failed validation.
func ParseAuthenticatorPlugin(data []byte) (Result, error) {
	var res Result
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !otpauth.IsURI(line) {
			res.Skipped++
			continue
		}
		tok, err := otpauth.Parse(line)
		if err != nil {
			res.FailedValidation++
			continue
		}
		res.Tokens = append(res.Tokens, tok)
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("plugin: %w", err)
	}
	return res, nil
}
