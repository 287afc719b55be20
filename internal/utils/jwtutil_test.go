package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, exp, err := GenerateToken(secret, 42, "ana", "VENTAS", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserId)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "VENTAS", claims.Role)
	assert.Equal(t, "ana", claims.Subject)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := GenerateToken([]byte("secret-a"), 1, "ana", "ADMIN", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret-b"), token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, _, err := GenerateToken([]byte("secret"), 1, "ana", "ADMIN", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret"), token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken([]byte("secret"), "not-a-token")
	assert.Error(t, err)
}
