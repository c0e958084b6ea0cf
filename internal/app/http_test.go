package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"federated-auth/internal/auth"
	"federated-auth/internal/config"
	"federated-auth/internal/identity"
	"federated-auth/internal/session"
	"federated-auth/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		TokenSecret:   "app-test-secret",
		TokenIssuer:   "federated-auth",
		TokenTTL:      time.Hour,
		SessionTTL:    time.Hour,
		IdentityStore: config.BackendMemory,
		SessionStore:  config.BackendMemory,
	}
}

func TestSetupHTTP_MemoryBackends(t *testing.T) {
	router, cleanup, err := setupHTTP(context.Background(), testConfig())
	require.NoError(t, err)
	require.NoError(t, cleanup())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	// no providers configured
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login/google", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetupInfra_UnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.SessionStore = config.BackendRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := setupInfra(context.Background(), cfg)
	require.Error(t, err)
}

func TestRouter_GateSeparation(t *testing.T) {
	cfg := testConfig()
	identities := identity.NewMemoryStore()
	sessions := session.NewMemoryStore()

	router, err := newRouter(cfg, nil, identities, sessions)
	require.NoError(t, err)

	now := time.Now().UTC()
	ann := &identity.Identity{
		ID:                        "id-ann",
		ProviderLinks:             map[auth.Provider]string{auth.ProviderGitHub: "gh-7"},
		DisplayName:               "Ann",
		LastAuthenticatedProvider: auth.ProviderGitHub,
		CreatedAt:                 now,
		LastLoginAt:               now,
	}
	require.NoError(t, identities.Put(context.Background(), ann))

	require.NoError(t, sessions.Create(context.Background(), session.Session{
		ID:        "sid-1",
		Principal: session.Principal{IdentityID: ann.ID},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	cookie := &http.Cookie{Name: session.CookieName, Value: "sid-1"}

	tokens, err := token.NewService([]byte(cfg.TokenSecret), cfg.TokenTTL)
	require.NoError(t, err)
	bearer, _, err := tokens.Issue(ann)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		cookie bool
		bearer bool
		want   int
	}{
		{"dashboard with cookie", "/dashboard", true, false, http.StatusOK},
		{"dashboard with bearer only", "/dashboard", false, true, http.StatusUnauthorized},
		{"token with cookie", "/auth/token", true, false, http.StatusOK},
		{"api with bearer", "/api/me", false, true, http.StatusOK},
		{"api with cookie only", "/api/me", true, false, http.StatusUnauthorized},
		{"ping with bearer", "/api/ping", false, true, http.StatusOK},
		{"ping with nothing", "/api/ping", false, false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie {
				req.AddCookie(cookie)
			}
			if tt.bearer {
				req.Header.Set("Authorization", "Bearer "+bearer)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
