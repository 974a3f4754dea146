package logging

import (
	"log/slog"
	"time"
)

// Err creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors, which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates a duration attribute with a custom key.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Count creates an integer attribute with a custom key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
