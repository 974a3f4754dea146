// Package store persists the engine's documents: the token collection and
// the auth config. Documents are opaque byte values addressed by key and
// live either in plain files or in an embedded SQLite database.
package store

import (
	"context"
)

// Well-known document keys.
const (
	TokensKey     = "tokens.json"
	AuthConfigKey = "auth_config.json"
)

// Repository is a small key/value port over the backing storage.
//
// Get returns (nil, nil) when the key does not exist.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
