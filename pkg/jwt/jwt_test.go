package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.GenerateTokenPair("user-1", "someone@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.ValidateToken(pair.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "someone@example.com", claims.Email)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestTokenTypeMismatch(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.GenerateTokenPair("user-1", "someone@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.RefreshToken, AccessToken)
	assert.Error(t, err, "refresh token must not pass as an access token")
}

func TestWrongSecret(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)
	other := NewService("another-secret", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.GenerateTokenPair("user-1", "someone@example.com")
	require.NoError(t, err)

	_, err = other.ValidateToken(pair.AccessToken, AccessToken)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, 7*24*time.Hour)

	pair, err := svc.GenerateTokenPair("user-1", "someone@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken, AccessToken)
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.GenerateTokenPair("user-1", "someone@example.com")
	require.NoError(t, err)

	fresh, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(fresh.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = svc.Refresh(pair.AccessToken)
	assert.Error(t, err, "an access token cannot be used to refresh")
}
