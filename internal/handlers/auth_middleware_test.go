package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareHandler() (*Handler, *auth.TokenManager) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	return &Handler{Tokens: tokens}, tokens
}

// checks that returns 401 if Authorization header is missing
func TestAuthMiddleware_MissingAuthorizationHeader(t *testing.T) {
	h, _ := newMiddlewareHandler()
	nextCalled := false
	next := func(w http.ResponseWriter, r *http.Request) { nextCalled = true }

	req := httptest.NewRequest(http.MethodGet, "/any", nil)
	rec := httptest.NewRecorder()

	h.AuthMiddleware(next)(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"msg":"Missing Authorization header"}`, rec.Body.String())
	assert.False(t, nextCalled, "next should NOT be called")
}

// checks that returns 401 for broken, foreign and expired tokens
func TestAuthMiddleware_InvalidTokens(t *testing.T) {
	h, tokens := newMiddlewareHandler()
	user := &models.User{ID: "u1", Name: "A", Role: models.RoleWorker}

	foreign, err := auth.NewTokenManager("another_secret_key_that_is_32_chars", time.Hour).Issue(user)
	require.NoError(t, err)
	expired, err := auth.NewTokenManager(testSecret, -time.Minute).Issue(user)
	require.NoError(t, err)
	valid, err := tokens.Issue(user)
	require.NoError(t, err)
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "role": "admin"})
	noExpSigned, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "Garbage", header: "Bearer obviously.invalid.token"},
		{name: "Wrong secret", header: "Bearer " + foreign},
		{name: "Expired", header: "Bearer " + expired},
		{name: "Missing exp", header: "Bearer " + noExpSigned},
		{name: "Wrong scheme", header: "Basic " + valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := func(w http.ResponseWriter, r *http.Request) { require.FailNow(t, "next must not be called") }
			req := httptest.NewRequest(http.MethodGet, "/any", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			h.AuthMiddleware(next)(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"msg":"Invalid token"}`, rec.Body.String())
		})
	}
}

// checks that a valid token puts the caller into the request context
func TestAuthMiddleware_Valid_PassesCallerInContext(t *testing.T) {
	h, tokens := newMiddlewareHandler()
	signed, err := tokens.Issue(&models.User{ID: "admin-id", Name: "Boss", Role: models.RoleAdmin})
	require.NoError(t, err)

	nextCalled := false
	next := func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		caller, ok := CallerFromContext(r.Context())
		require.True(t, ok, "caller missing from context")
		assert.Equal(t, "admin-id", caller.ID)
		assert.Equal(t, models.RoleAdmin, caller.Role)
		assert.Equal(t, "Boss", caller.Name)
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/any", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	h.AuthMiddleware(next)(rec, req)

	assert.True(t, nextCalled, "next should be called")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken_QueryOnlyOnUpgrade(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/api/ws?access_token=abc", nil)
	assert.Empty(t, bearerToken(plain), "query token must be ignored without upgrade")

	upgrade := httptest.NewRequest(http.MethodGet, "/api/ws?access_token=abc", nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	assert.Equal(t, "abc", bearerToken(upgrade))
}
