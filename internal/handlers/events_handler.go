package handlers

import (
	"net/http"

	"github.com/cryptoarcade/backend/internal/events"
)

type EventsHandler struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream pushes the caller's balance and request status changes
// @Summary Change feed
// @Description Websocket stream of the caller's events. Browsers may pass the JWT as ?token=
// @Tags Events
// @Security BearerAuth
// @Success 101 {object} models.Event
// @Failure 401 {object} services.ErrorResponse
// @Router /events/ws [get]
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.hub.Serve(w, r, userID)
}
