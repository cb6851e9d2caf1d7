package handlers

import (
	"context"
	"net/http"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the review queue and role management. Routes are
// mounted behind the admin role guard; the services check the actor again.
type AdminHandler struct {
	funds     *services.FundsService
	access    *services.AccessService
	validator *services.ValidationHelper
}

func NewAdminHandler(funds *services.FundsService, access *services.AccessService) *AdminHandler {
	return &AdminHandler{
		funds:     funds,
		access:    access,
		validator: services.NewValidationHelper(),
	}
}

// ListRequests is the admin review queue
// @Summary List funds requests
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param kind query string false "deposit or withdrawal"
// @Param status query string false "pending, approved, completed or rejected"
// @Param account_id query string false "Filter by account"
// @Param limit query int false "Max rows"
// @Success 200 {array} models.FundsRequest
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/funds/requests [get]
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter, ok := parseFundsFilter(w, r)
	if !ok {
		return
	}
	filter.AccountID = r.URL.Query().Get("account_id")

	list, err := h.funds.ListAll(r.Context(), actorID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ApproveDeposit credits a pending deposit
// @Summary Approve deposit
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.FundsRequest
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/funds/requests/{id}/approve [post]
func (h *AdminHandler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.funds.ApproveDeposit)
}

// CompleteWithdrawal debits a pending withdrawal once it has been paid out
// @Summary Complete withdrawal
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.FundsRequest
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/funds/requests/{id}/complete [post]
func (h *AdminHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.funds.CompleteWithdrawal)
}

// Reject closes a pending request without moving funds
// @Summary Reject request
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.FundsRequest
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/funds/requests/{id}/reject [post]
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.funds.Reject)
}

type reviewFunc func(ctx context.Context, actorID, requestID string) (*models.FundsRequest, error)

func (h *AdminHandler) review(w http.ResponseWriter, r *http.Request, fn reviewFunc) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	updated, err := fn(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type roleBody struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Role   string `json:"role" validate:"required,oneof=admin moderator user"`
}

// GrantRole gives a user a role
// @Summary Grant role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body handlers.roleBody true "Grant"
// @Success 201 {object} object{user_id=string,roles=[]string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/roles [post]
func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, http.StatusCreated, h.access.Grant)
}

// RevokeRole removes a role from a user
// @Summary Revoke role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body handlers.roleBody true "Revoke"
// @Success 200 {object} object{user_id=string,roles=[]string}
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/roles [delete]
func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, http.StatusOK, h.access.Revoke)
}

type roleChangeFunc func(ctx context.Context, actorID, userID string, role models.Role) error

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request, status int, fn roleChangeFunc) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req roleBody
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	role, _ := models.ParseRole(req.Role)

	if err := fn(r.Context(), actorID, req.UserID, role); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRoles(w, r, status, req.UserID)
}

// ListRoles shows a user's grants
// @Summary List roles
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} object{user_id=string,roles=[]string}
// @Router /admin/roles/{userId} [get]
func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	h.writeRoles(w, r, http.StatusOK, chi.URLParam(r, "userId"))
}

func (h *AdminHandler) writeRoles(w http.ResponseWriter, r *http.Request, status int, userID string) {
	roles, err := h.access.Roles(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, map[string]any{"user_id": userID, "roles": roles})
}
