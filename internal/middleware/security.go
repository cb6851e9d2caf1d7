package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cryptoarcade/backend/internal/models"
)

// SecurityHeaders sets the response headers every API reply carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// RoleChecker is satisfied by services.AccessService.
type RoleChecker interface {
	RequireRole(ctx context.Context, userID string, role models.Role) error
}

// RequireRole rejects callers that do not hold role. It must run after
// AuthMiddleware.
func RequireRole(checker RoleChecker, role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if err := checker.RequireRole(r.Context(), userID, role); err != nil {
				if errors.Is(err, models.ErrForbidden) {
					writeJSONError(w, "Forbidden", http.StatusForbidden)
					return
				}
				writeJSONError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
