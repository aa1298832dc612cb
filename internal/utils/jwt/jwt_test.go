package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndParseToken(t *testing.T) {
	token, err := CreateToken("tenant-a", "user-1", RoleAdmin, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := CreateToken("tenant-a", "user-1", RoleInstructor, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := CreateToken("tenant-a", "user-1", RoleInstructor, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret")
	assert.Error(t, err)

	_, err = ParseToken("not-a-token", "secret")
	assert.Error(t, err)
}

func TestCreateToken_RequiresTenantAndUser(t *testing.T) {
	_, err := CreateToken("", "user-1", "", "secret", time.Hour)
	assert.Error(t, err)
	_, err = CreateToken("tenant-a", "", "", "secret", time.Hour)
	assert.Error(t, err)
}
