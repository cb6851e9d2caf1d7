package handlers

import (
	"net/http"

	"github.com/cryptoarcade/backend/internal/services"
)

type AccountHandler struct {
	ledger    *services.LedgerService
	referrals *services.ReferralService
	validator *services.ValidationHelper
}

func NewAccountHandler(ledger *services.LedgerService, referrals *services.ReferralService) *AccountHandler {
	return &AccountHandler{
		ledger:    ledger,
		referrals: referrals,
		validator: services.NewValidationHelper(),
	}
}

// CreateAccount opens a ledger account for the caller
// @Summary Create account
// @Description Open a zero-balance ledger account for the authenticated user
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,referral_code=string} true "Account request"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Username     string `json:"username" validate:"required,min=3,max=32"`
		ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,alphanum,max=16"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	acct, err := h.ledger.CreateAccount(r.Context(), userID, req.Username, req.ReferralCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// GetMe returns the caller's account
// @Summary Get my account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/me [get]
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	acct, err := h.ledger.GetAccount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// ListWagers returns the caller's settled rounds, newest first
// @Summary List my wagers
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 50, max 500)"
// @Success 200 {array} models.WagerRecord
// @Router /accounts/me/wagers [get]
func (h *AccountHandler) ListWagers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	wagers, err := h.ledger.ListWagers(r.Context(), userID, queryLimit(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wagers)
}

// ReferralEarnings reports commission earned on referred players
// @Summary Referral earnings
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.ReferralEarnings
// @Router /referrals/earnings [get]
func (h *AccountHandler) ReferralEarnings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	earnings, err := h.referrals.Earnings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}
