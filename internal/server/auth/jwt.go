// Package auth issues and checks the daemon's session tokens: HS256 JWTs
// whose iat is the time the session was opened.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

const sessionSubject = "winotp-session"

// GenerateToken signs a session token for a session opened at authTime. A
// positive validity sets the expiry; otherwise the token lives as long as
// the session.
func GenerateToken(secretKey []byte, authTime time.Time, validity time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  sessionSubject,
		IssuedAt: jwt.NewNumericDate(authTime),
	}
	if validity > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(authTime.Add(validity))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseToken validates tokenString and returns its auth time.
func ParseToken(tokenString string, secretKey []byte) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithSubject(sessionSubject))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return time.Time{}, common.ErrSessionExpired
		}
		return time.Time{}, common.ErrInvalidSession
	}
	if !token.Valid || claims.IssuedAt == nil {
		return time.Time{}, common.ErrInvalidSession
	}

	return claims.IssuedAt.Time, nil
}
