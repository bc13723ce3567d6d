package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mxteam/mediabot/internal/api/middleware"
	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
	"github.com/mxteam/mediabot/internal/repository"
	"github.com/mxteam/mediabot/internal/services"
	"github.com/mxteam/mediabot/internal/testutil"
)

type testSecurityConfig struct{ hash string }

func (c *testSecurityConfig) GetJWTSecret() string {
	return "test-secret-that-is-32-characters-long"
}
func (c *testSecurityConfig) GetJWTExpiration() time.Duration { return time.Hour }
func (c *testSecurityConfig) GetOperatorPasswordHash() string { return c.hash }

func newTestRouter(t *testing.T) (*gin.Engine, services.OperatorAuthService, *services.SessionManager, domain.UserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("op-password"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := services.NewOperatorAuthService(&testSecurityConfig{hash: string(hash)})

	sessions := services.NewSessionManager(services.SessionManagerConfig{
		Store:   repository.NewMemorySessionStore(),
		Factory: func() platform.Client { return &testutil.MockPlatformClient{} },
	})

	users := repository.NewMemoryUserRepository()
	handler := NewAdminHandler(
		auth,
		sessions,
		services.NewUserService(users, nil),
		users,
		repository.NewMemoryDownloadRepository(),
		repository.NewMemoryLinkedAccountRepository(),
		NewErrorRenderer(nil),
	)

	router := gin.New()
	authMW := middleware.NewAuthMiddleware(auth)
	handler.RegisterRoutes(router, authMW.RequireOperator())
	return router, auth, sessions, users
}

func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminLogin(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	t.Run("correct password returns a token", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/admin/login", "", gin.H{"password": "op-password"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Data.Token)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/admin/login", "", gin.H{"password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing password is a bad request", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/admin/login", "", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	router, auth, _, _ := newTestRouter(t)

	t.Run("no token is rejected", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/admin/stats", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/admin/stats", "junk", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token passes", func(t *testing.T) {
		token, err := auth.Login("op-password")
		require.NoError(t, err)

		w := doJSON(router, http.MethodGet, "/api/admin/stats", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminSessionEndpoints(t *testing.T) {
	router, auth, sessions, _ := newTestRouter(t)
	token, err := auth.Login("op-password")
	require.NoError(t, err)

	t.Run("session login adopts the account", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/admin/sessions/botacct/login", token,
			gin.H{"username": "bot", "password": "pw"})
		require.Equal(t, http.StatusOK, w.Code)

		_, err := sessions.GetAuthenticatedClient("botacct")
		assert.NoError(t, err)
	})

	t.Run("status reports the live state", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/admin/sessions/botacct", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Status string `json:"status"`
				Valid  bool   `json:"valid"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "valid", resp.Data.Status)
		assert.True(t, resp.Data.Valid)
	})

	t.Run("logout drops the session", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/api/admin/sessions/botacct", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		_, err := sessions.GetAuthenticatedClient("botacct")
		assert.Error(t, err)
	})
}

func TestAdminBanEndpoints(t *testing.T) {
	router, auth, _, users := newTestRouter(t)
	token, err := auth.Login("op-password")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, users.Upsert(ctx, &domain.User{ID: "user1", Username: "somebody"}))

	t.Run("ban flags the user", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/admin/users/user1/ban", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		user, err := users.GetByID(ctx, "user1")
		require.NoError(t, err)
		assert.True(t, user.Banned)
	})

	t.Run("unban lifts the flag", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/api/admin/users/user1/ban", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		user, err := users.GetByID(ctx, "user1")
		require.NoError(t, err)
		assert.False(t, user.Banned)
	})

	t.Run("banning an unknown user is not found", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/admin/users/ghost/ban", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
