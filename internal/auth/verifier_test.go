package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevMode(t *testing.T) {
	v := NewVerifier("", "")
	assert.True(t, v.Dev())
	p, err := v.Verify(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACMode(t *testing.T) {
	secret := []byte("s3cret")
	v := NewVerifier("hmac", string(secret))
	v.now = func() time.Time { return time.Unix(1_000, 0) }
	assert.False(t, v.Dev())

	tok, err := SignHS256(secret, map[string]any{"sub": "ops", "role": "ADMIN", "exp": 2_000})
	require.NoError(t, err)
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "ops", Role: RoleAdmin}, p)

	tok, err = SignHS256(secret, map[string]any{"sub": "guest"})
	require.NoError(t, err)
	p, err = v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, p.Role)

	tok, err = SignHS256([]byte("other"), map[string]any{"role": "admin"})
	require.NoError(t, err)
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrBadSignature)

	tok, err = SignHS256(secret, map[string]any{"role": "admin", "exp": 500})
	require.NoError(t, err)
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
