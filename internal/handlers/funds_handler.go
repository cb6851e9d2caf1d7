package handlers

import (
	"net/http"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/services"
	"github.com/shopspring/decimal"
)

type FundsHandler struct {
	funds     *services.FundsService
	addresses *services.DepositAddressService
	validator *services.ValidationHelper
}

func NewFundsHandler(funds *services.FundsService, addresses *services.DepositAddressService) *FundsHandler {
	return &FundsHandler{
		funds:     funds,
		addresses: addresses,
		validator: services.NewValidationHelper(),
	}
}

type fundsRequestBody struct {
	Amount            decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency          string          `json:"currency,omitempty" validate:"omitempty,alpha,max=10"`
	Network           string          `json:"network" validate:"required,max=16"`
	ExternalReference string          `json:"external_reference" validate:"required,max=128"`
}

// CreateDeposit submits a deposit for manual review
// @Summary Request a deposit
// @Description external_reference is the on-chain transaction hash
// @Tags Funds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body handlers.fundsRequestBody true "Deposit"
// @Success 201 {object} models.FundsRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /funds/deposits [post]
func (h *FundsHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, models.KindDeposit)
}

// CreateWithdrawal submits a withdrawal for manual review
// @Summary Request a withdrawal
// @Description external_reference is the destination address; the network fee is deducted from the amount
// @Tags Funds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body handlers.fundsRequestBody true "Withdrawal"
// @Success 201 {object} models.FundsRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /funds/withdrawals [post]
func (h *FundsHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, models.KindWithdrawal)
}

func (h *FundsHandler) create(w http.ResponseWriter, r *http.Request, kind models.FundsKind) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req fundsRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	created, err := h.funds.CreateFundsRequest(r.Context(), userID, services.FundsRequestInput{
		Kind:              kind,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Network:           req.Network,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListMyRequests lists the caller's deposits and withdrawals
// @Summary List my funds requests
// @Tags Funds
// @Produce json
// @Security BearerAuth
// @Param kind query string false "deposit or withdrawal"
// @Param status query string false "pending, approved, completed or rejected"
// @Param limit query int false "Max rows"
// @Success 200 {array} models.FundsRequest
// @Router /funds/requests [get]
func (h *FundsHandler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter, ok := parseFundsFilter(w, r)
	if !ok {
		return
	}
	list, err := h.funds.ListForAccount(r.Context(), userID, filter.Kind, filter.Status, filter.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DepositAddress returns the house address and QR code for a network
// @Summary Deposit address
// @Tags Funds
// @Produce json
// @Security BearerAuth
// @Param network query string true "TRC-20 or BEP-20"
// @Success 200 {object} services.DepositAddress
// @Failure 400 {object} services.ErrorResponse
// @Router /funds/deposit-address [get]
func (h *FundsHandler) DepositAddress(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	addr, err := h.addresses.Address(r.URL.Query().Get("network"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

func parseFundsFilter(w http.ResponseWriter, r *http.Request) (models.FundsFilter, bool) {
	q := r.URL.Query()
	filter := models.FundsFilter{
		Kind:   models.FundsKind(q.Get("kind")),
		Status: models.FundsStatus(q.Get("status")),
		Limit:  queryLimit(r),
	}
	switch filter.Kind {
	case "", models.KindDeposit, models.KindWithdrawal:
	default:
		services.SendErrorResponse(w, "unknown kind", http.StatusBadRequest, nil)
		return filter, false
	}
	switch filter.Status {
	case "", models.StatusPending, models.StatusApproved, models.StatusCompleted, models.StatusRejected:
	default:
		services.SendErrorResponse(w, "unknown status", http.StatusBadRequest, nil)
		return filter, false
	}
	return filter, true
}
