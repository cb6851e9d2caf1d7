package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLen = 128

type GameHandler struct {
	settlement *services.SettlementService
	runner     *services.RunnerService
	validator  *services.ValidationHelper
}

func NewGameHandler(settlement *services.SettlementService, runner *services.RunnerService) *GameHandler {
	return &GameHandler{
		settlement: settlement,
		runner:     runner,
		validator:  services.NewValidationHelper(),
	}
}

type chestTierView struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	MaxMultiplier float64         `json:"max_multiplier"`
}

type gameTableView struct {
	Lottery struct {
		TicketPrice decimal.Decimal `json:"ticket_price"`
		MinStake    decimal.Decimal `json:"min_stake"`
		MaxStake    decimal.Decimal `json:"max_stake"`
	} `json:"lottery"`
	Scratch struct {
		CardPrice decimal.Decimal `json:"card_price"`
		MinStake  decimal.Decimal `json:"min_stake"`
		MaxStake  decimal.Decimal `json:"max_stake"`
	} `json:"scratch"`
	Chest  []chestTierView `json:"chest"`
	Runner struct {
		CostPerSecond decimal.Decimal `json:"cost_per_second"`
		MaxSeconds    int             `json:"max_seconds"`
	} `json:"runner"`
}

// ListGames describes what can be played and at what price
// @Summary Game table
// @Tags Games
// @Produce json
// @Success 200 {object} handlers.gameTableView
// @Router /games [get]
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	cfg := h.settlement.Games()

	var view gameTableView
	view.Lottery.TicketPrice = cfg.Lottery.UnitPrice
	view.Lottery.MinStake = cfg.Stakes[models.GameLottery].Min
	view.Lottery.MaxStake = cfg.Stakes[models.GameLottery].Max
	view.Scratch.CardPrice = cfg.Scratch.UnitPrice
	view.Scratch.MinStake = cfg.Stakes[models.GameScratch].Min
	view.Scratch.MaxStake = cfg.Stakes[models.GameScratch].Max
	for _, t := range cfg.Chest.Tiers {
		view.Chest = append(view.Chest, chestTierView{Name: t.Name, Price: t.Price, MaxMultiplier: t.MaxMultiplier})
	}
	view.Runner.CostPerSecond = cfg.Runner.CostPerSecond
	view.Runner.MaxSeconds = cfg.Runner.MaxSeconds()

	writeJSON(w, http.StatusOK, view)
}

// Settle plays one round of lottery, scratch or chest
// @Summary Settle a wager
// @Description Debit the stake, decide the outcome server-side and credit any payout atomically
// @Tags Games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gameType path string true "lottery, scratch or chest"
// @Param Idempotency-Key header string false "Replays the first result for a repeated key"
// @Param request body object{bet_amount=string,tier=string,idempotency_key=string} true "Wager"
// @Success 200 {object} services.SettleResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /games/{gameType}/settle [post]
func (h *GameHandler) Settle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	gameType := models.GameType(strings.ToLower(chi.URLParam(r, "gameType")))
	if gameType == models.GameRunner {
		services.SendErrorResponse(w, "runner rounds are settled through the run endpoints", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		BetAmount      decimal.Decimal `json:"bet_amount"`
		Tier           string          `json:"tier,omitempty" validate:"omitempty,alpha,max=32"`
		IdempotencyKey string          `json:"idempotency_key,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	key := req.IdempotencyKey
	if header := r.Header.Get("Idempotency-Key"); header != "" {
		if key != "" && key != header {
			services.SendErrorResponse(w, "conflicting idempotency keys", http.StatusBadRequest, nil)
			return
		}
		key = header
	}
	if len(key) > maxIdempotencyKeyLen {
		services.SendErrorResponse(w, fmt.Sprintf("idempotency key longer than %d characters", maxIdempotencyKeyLen), http.StatusBadRequest, nil)
		return
	}

	res, err := h.settlement.Settle(r.Context(), services.SettleRequest{
		AccountID:      userID,
		GameType:       gameType,
		BetAmount:      req.BetAmount,
		Tier:           req.Tier,
		IdempotencyKey: key,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StartRun opens an endless-runner round
// @Summary Start a run
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Success 201 {object} services.RunSession
// @Failure 409 {object} services.ErrorResponse
// @Router /games/runner/start [post]
func (h *GameHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	run, err := h.runner.StartRun(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ActiveRun returns the caller's open run so a reloaded client can resume it
// @Summary Current run
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.RunSession
// @Failure 404 {object} services.ErrorResponse
// @Router /games/runner/active [get]
func (h *GameHandler) ActiveRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	run, ok := h.runner.Active(userID)
	if !ok {
		services.SendErrorResponse(w, "no active run", http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ExitRun ends the caller's run and settles it
// @Summary Exit a run
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Success 200 {object} services.SettleResult
// @Failure 404 {object} services.ErrorResponse
// @Router /games/runner/{runId}/exit [post]
func (h *GameHandler) ExitRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.runner.ExitRun(r.Context(), userID, chi.URLParam(r, "runId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
