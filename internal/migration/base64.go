package migration

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
)

// decodeData turns the extracted parameter into payload bytes. Scanners
// mangle these strings in predictable ways: the value may still be percent
// encoded, '+' may have become a space, and the URL-safe alphabet may be
// mixed in.
func decodeData(value string) ([]byte, error) {
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}

	if b, err := base64.StdEncoding.DecodeString(pad(value)); err == nil {
		return b, nil
	}
	cleaned := normalize(value)
	if cleaned == "" {
		return nil, errors.New("no base64 content")
	}
	return base64.StdEncoding.DecodeString(pad(cleaned))
}

func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '-' || r == ' ':
			sb.WriteByte('+')
		case r == '_':
			sb.WriteByte('/')
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func pad(s string) string {
	s = strings.TrimRight(s, "=")
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}
	return s
}
