package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-42", secret, time.Hour)
	require.NoError(t, err)

	userID, err := GetUserIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken("user-42", []byte("right"), time.Hour)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(token, []byte("wrong"))
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken("user-42", secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(token, secret)
	require.Error(t, err)
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, VerifyPassword("hunter2", hash))
	assert.False(t, VerifyPassword("hunter3", hash))
}
