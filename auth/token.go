// Package auth implements the client side of the session lifecycle: decoding
// token claims, scheduling pre-expiry logout, keeping the local security log,
// and driving the login/refresh/logout state machine against the backend.
//
// Everything here runs on the dashboard host with no way to verify token
// signatures, so token validation is an optimization (skip doomed requests),
// never a security boundary; the backend enforces the real one.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of token claims the session manager reads.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Raw       map[string]any
}

// DecodeToken parses a bearer token without verifying its signature. A token
// is well-formed only if it has exactly three dot-separated segments and the
// middle segment is base64-encoded JSON; anything else fails with
// ErrMalformedToken.
func DecodeToken(raw string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims := &Claims{Raw: map[string]any(mc)}
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if email, ok := mc["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

// TokenValid reports whether a token is well-formed and not expired at now.
// Tokens without an exp claim never expire client side.
func TokenValid(raw string, now time.Time) bool {
	claims, err := DecodeToken(raw)
	if err != nil {
		return false
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(claims.ExpiresAt)
}
