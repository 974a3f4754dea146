package migration

import (
	"encoding/base32"
	"strings"
)

// Algorithm is the HMAC algorithm of a migrated account.
type Algorithm int32

const (
	AlgorithmUnspecified Algorithm = iota
	AlgorithmSHA1
	AlgorithmSHA256
	AlgorithmSHA512
	AlgorithmMD5
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmSHA1:
		return "SHA1"
	case AlgorithmSHA256:
		return "SHA256"
	case AlgorithmSHA512:
		return "SHA512"
	case AlgorithmMD5:
		return "MD5"
	default:
		return "UNSPECIFIED"
	}
}

// DigitCount is the code length of a migrated account.
type DigitCount int32

const (
	DigitsUnspecified DigitCount = iota
	DigitsSix
	DigitsEight
)

func (d DigitCount) Digits() int {
	if d == DigitsEight {
		return 8
	}
	return 6
}

// OTPType distinguishes counter and time based accounts.
type OTPType int32

const (
	TypeUnspecified OTPType = iota
	TypeHOTP
	TypeTOTP
)

func (t OTPType) String() string {
	switch t {
	case TypeHOTP:
		return "hotp"
	case TypeTOTP:
		return "totp"
	default:
		return "unspecified"
	}
}

// Record is one account decoded from a migration payload.
type Record struct {
	Secret    []byte
	Name      string
	Issuer    string
	Algorithm Algorithm
	Digits    DigitCount
	Type      OTPType
}

// Base32Secret returns the secret as unpadded upper-case Base32.
func (r Record) Base32Secret() string {
	return strings.ToUpper(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(r.Secret))
}

// Supported reports whether the record can be served by a 30 second,
// 6 digit, SHA1 TOTP engine.
func (r Record) Supported() bool {
	return r.Type == TypeTOTP && r.Digits == DigitsSix && r.Algorithm == AlgorithmSHA1
}

// Payload is a decoded migration batch.
type Payload struct {
	Records    []Record
	Version    int32
	BatchSize  int32
	BatchIndex int32
	BatchID    int32
	// Dropped counts records without a secret.
	Dropped int
	// Skipped counts submessages that could not be decoded.
	Skipped int
}
