package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type contextKey string

// UserIDKey holds the authenticated user id in the request context.
const UserIDKey contextKey = "userID"

const revokedPrefix = "blacklist:"

var revocations *redis.Client

// InitAuthMiddleware enables the token blacklist check. With a nil client
// revoked tokens stay valid until they expire.
func InitAuthMiddleware(rdb *redis.Client) {
	revocations = rdb
}

// UserID returns the authenticated user id, or "" outside AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// WithUserID is used by tests and internal callers to build an
// authenticated context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		userID, err := validateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if isRevoked(r.Context(), token) {
			http.Error(w, "Token revoked", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so upgrades may pass the token as ?token=.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, true
			}
		}
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	userID, ok := claims["user_id"]
	if !ok || userID == nil {
		return "", errors.New("token has no user_id claim")
	}
	id := fmt.Sprintf("%v", userID)
	if id == "" {
		return "", errors.New("token has an empty user_id claim")
	}
	return id, nil
}

func isRevoked(ctx context.Context, token string) bool {
	if revocations == nil {
		return false
	}
	n, err := revocations.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		logger.WarnCtx(ctx, "token blacklist lookup failed", zap.Error(err))
		return false
	}
	return n > 0
}

// RevokeToken blacklists token for ttl.
func RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if revocations == nil {
		return nil
	}
	return revocations.Set(ctx, revokedPrefix+token, "1", ttl).Err()
}
