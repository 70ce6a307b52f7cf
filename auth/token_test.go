package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestDecodeTokenReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signedToken(t, jwt.MapClaims{
		"sub":   "u1",
		"email": "u1@example.com",
		"exp":   exp.Unix(),
	})

	claims, err := DecodeToken(raw)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, "u1@example.com", claims.Email)
	require.True(t, claims.ExpiresAt.Equal(exp))
}

func TestDecodeTokenRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"justonechunk",
		"two.parts",
		"a.b.c.d",
		"aGVhZA.!!!notbase64json!!!.c2ln",
	} {
		_, err := DecodeToken(raw)
		require.ErrorIs(t, err, ErrMalformedToken, "token %q", raw)
	}
}

func TestTokenValid(t *testing.T) {
	now := time.Now()

	expired := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()})
	require.False(t, TokenValid(expired, now))

	// exp exactly at now counts as expired.
	boundary := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": now.Unix()})
	require.False(t, TokenValid(boundary, time.Unix(now.Unix(), 0)))

	live := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(time.Hour).Unix()})
	require.True(t, TokenValid(live, now))

	// Tokens without exp never expire client side.
	eternal := signedToken(t, jwt.MapClaims{"sub": "u1"})
	require.True(t, TokenValid(eternal, now))

	require.False(t, TokenValid("garbage", now))
}
