package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, exp, err := GenerateToken(secret, "user-1", "jdoe", "base_commander", "base-a", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserId)
	assert.Equal(t, "jdoe", claims.Username)
	assert.Equal(t, "base_commander", claims.Role)
	assert.Equal(t, "base-a", claims.BaseId)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateToken([]byte("secret-a"), "user-1", "jdoe", "viewer", "", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret-b"), token)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, _, err := GenerateToken(secret, "user-1", "jdoe", "viewer", "", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(secret, token)
	assert.Error(t, err)
}
