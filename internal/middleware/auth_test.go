package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecret(t *testing.T) {
	t.Helper()
	viper.Set("jwt.secret_key", "test-secret")
	t.Cleanup(viper.Reset)
}

func signToken(userID string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	setSecret(t)
	InitAuthMiddleware(nil)

	valid, err := signToken("user-42")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-42",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-42"}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "user-42"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, ""},
		{"no user claim", "Bearer " + noUser, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(echoUser()).ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_WebsocketQueryToken(t *testing.T) {
	setSecret(t)
	InitAuthMiddleware(nil)
	token, err := signToken("user-7")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/events/ws?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-7", w.Body.String())

	// plain requests must use the header
	req = httptest.NewRequest(http.MethodGet, "/events/ws?token="+token, nil)
	w = httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	setSecret(t)
	redisClient, mock := redismock.NewClientMock()
	InitAuthMiddleware(redisClient)
	t.Cleanup(func() { InitAuthMiddleware(nil) })

	token, err := signToken("user-42")
	require.NoError(t, err)

	mock.ExpectSet("blacklist:"+token, "1", time.Hour).SetVal("OK")
	require.NoError(t, RevokeToken(context.Background(), token, time.Hour))

	mock.ExpectExists("blacklist:" + token).SetVal(1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	AuthMiddleware(echoUser()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type stubChecker map[string]models.Role

func (s stubChecker) RequireRole(_ context.Context, userID string, role models.Role) error {
	if s[userID] == role {
		return nil
	}
	return models.ErrForbidden
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(stubChecker{"admin-1": models.RoleAdmin}, models.RoleAdmin)
	handler := guard(echoUser())

	tests := []struct {
		name   string
		userID string
		code   int
	}{
		{"admin", "admin-1", http.StatusOK},
		{"player", "player-1", http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.userID != "" {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(echoUser()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
