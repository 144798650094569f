package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse role carried by an access token
type Role string

const (
	RoleNone   Role = ""
	RoleAdmin  Role = "admin"
	RoleParent Role = "parent"
)

// ErrMalformedToken is returned when a token payload cannot be decoded
var ErrMalformedToken = errors.New("malformed token")

// Claims is the part of the access token payload the web front looks at.
type Claims struct {
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// DecodePayload decodes an access token payload without verifying the
// signature. The web front never holds the signing key, so the result is
// untrusted: it may only drive expiry checks and display, never an
// authorization decision.
func DecodePayload(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return claims, nil
}

// TokenExpired reports whether the token's embedded expiry is before now.
// A token that cannot be decoded, or carries no expiry, counts as expired.
func TokenExpired(token string, now time.Time) bool {
	claims, err := DecodePayload(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(now)
}

// RoleFromToken returns the role claimed by the token, RoleNone when it
// cannot be decoded.
func RoleFromToken(token string) Role {
	claims, err := DecodePayload(token)
	if err != nil {
		return RoleNone
	}
	if claims.IsAdmin {
		return RoleAdmin
	}
	return RoleParent
}
