// Package common defines shared constants, helpers and sentinel errors used
// across the WinOTP engine, its CLI and its gRPC daemon. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Time synchronization. Absorbed by the synchronizer, never surfaced to
	// code generation callers.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// Token validation.
	ErrInvalidSecret      = errors.New("invalid secret")
	ErrDuplicateSecret    = errors.New("duplicate secret")
	ErrTokenNotFound      = errors.New("token not found")
	ErrUnsupportedOTPType = errors.New("unsupported otp type")

	// Credentials and sessions.
	ErrInvalidCredential = errors.New("invalid credential format")
	ErrWrongCredential   = errors.New("wrong credential")
	ErrLocked            = errors.New("store is locked")
	ErrInvalidSession    = errors.New("invalid session token")
	ErrSessionExpired    = errors.New("session expired")

	// Store integrity.
	ErrCorruptStore      = errors.New("corrupt store")
	ErrInconsistentState = errors.New("credential verified but store could not be decrypted")

	// Migration import.
	ErrMalformedMigrationPayload = errors.New("malformed migration payload")
	ErrRecordSkipped             = errors.New("migration record skipped")
)
