// Package filex resolves and creates the data directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir resolves dir against the working directory when it is
// relative and creates it, owner-only, if missing. It returns the absolute
// path.
func EnsureDataDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("data dir is empty")
	}

	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
