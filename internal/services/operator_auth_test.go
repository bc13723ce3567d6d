package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testSecurityConfig struct {
	secret     string
	hash       string
	expiration time.Duration
}

func (c *testSecurityConfig) GetJWTSecret() string            { return c.secret }
func (c *testSecurityConfig) GetJWTExpiration() time.Duration { return c.expiration }
func (c *testSecurityConfig) GetOperatorPasswordHash() string { return c.hash }

func newTestOperatorAuth(t *testing.T, password string) OperatorAuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewOperatorAuthService(&testSecurityConfig{
		secret:     "test-secret-that-is-32-characters-long",
		hash:       string(hash),
		expiration: time.Hour,
	})
}

func TestOperatorAuth_Login(t *testing.T) {
	auth := newTestOperatorAuth(t, "hunter2hunter2")

	t.Run("correct password yields a validating token", func(t *testing.T) {
		token, err := auth.Login("hunter2hunter2")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auth.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "operator", claims.Role)
		assert.Equal(t, "operator", claims.Subject)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := auth.Login("wrong")
		require.Error(t, err)
	})
}

func TestOperatorAuth_ValidateToken(t *testing.T) {
	auth := newTestOperatorAuth(t, "hunter2hunter2")

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := auth.ValidateToken("not.a.token")
		require.Error(t, err)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewOperatorAuthService(&testSecurityConfig{
			secret:     "a-completely-different-32-char-secret!",
			hash:       mustHash(t, "hunter2hunter2"),
			expiration: time.Hour,
		})
		token, err := other.Login("hunter2hunter2")
		require.NoError(t, err)

		_, err = auth.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		shortLived := NewOperatorAuthService(&testSecurityConfig{
			secret:     "test-secret-that-is-32-characters-long",
			hash:       mustHash(t, "hunter2hunter2"),
			expiration: -time.Minute,
		})
		token, err := shortLived.Login("hunter2hunter2")
		require.NoError(t, err)

		_, err = auth.ValidateToken(token)
		require.Error(t, err)
	})
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
