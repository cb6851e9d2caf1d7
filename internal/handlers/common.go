package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cryptoarcade/backend/internal/logger"
	mW "github.com/cryptoarcade/backend/internal/middleware"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/services"
	"go.uber.org/zap"
)

const maxBodyBytes = 1_048_576

var errBadBody = errors.New("bad body")

// decodeJSON reads exactly one JSON object into dst, rejecting unknown
// fields. It writes the 400 response itself and returns errBadBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return errBadBody
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requireUser returns the authenticated caller or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := mW.UserID(r.Context())
	if userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return "", false
	}
	return userID, true
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

// writeServiceError maps domain errors to HTTP statuses. Integrity and
// unexpected errors are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidStake),
		errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, models.ErrUnknownGame):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, models.ErrForbidden):
		services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
	case errors.Is(err, models.ErrNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrAccountExists),
		errors.Is(err, models.ErrRoleExists),
		errors.Is(err, models.ErrDuplicateReference),
		errors.Is(err, models.ErrRunInProgress),
		errors.Is(err, models.ErrDuplicateInFlight):
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	case errors.Is(err, models.ErrBusy):
		w.Header().Set("Retry-After", "1")
		services.SendErrorResponse(w, models.ErrBusy.Error(), http.StatusServiceUnavailable, nil)
	default:
		logger.ErrorCtx(r.Context(), "request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
