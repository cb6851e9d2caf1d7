package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/logger"
	mW "github.com/cryptoarcade/backend/internal/middleware"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Logout blacklists the caller's token until it would have expired
// @Summary Logout
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" {
		hours := viper.GetInt("jwt.expiry_hours")
		if hours <= 0 {
			hours = 24
		}
		if err := mW.RevokeToken(r.Context(), token, time.Duration(hours)*time.Hour); err != nil {
			logger.WarnCtx(r.Context(), "failed to blacklist token", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
