// Package authtest mints access tokens for tests. The web front never signs
// tokens itself; these exist so guards and clients can be exercised against
// realistic payloads.
package authtest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tumioparbe/web/internal/auth"
)

const secret = "authtest-signing-secret"

// Token returns an HS256 access token expiring at exp.
func Token(exp time.Time, admin bool) string {
	claims := auth.Claims{
		IsAdmin:   admin,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Valid returns a token that expires an hour from now.
func Valid(admin bool) string {
	return Token(time.Now().Add(time.Hour), admin)
}

// Expired returns a token that expired an hour ago.
func Expired() string {
	return Token(time.Now().Add(-time.Hour), false)
}
