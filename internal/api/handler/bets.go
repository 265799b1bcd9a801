package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"commissioner/internal/api/respond"
	"commissioner/internal/bet"
	"commissioner/internal/schedule"
)

// slateDateOr returns the given "2006-01-02" date, or today in the slate
// timezone when empty.
func slateDateOr(dateStr string, loc *time.Location) string {
	if strings.TrimSpace(dateStr) != "" {
		return strings.TrimSpace(dateStr)
	}
	return time.Now().In(loc).Format("2006-01-02")
}

// ListBets returns the active user's queue, newest first.
// @Summary List bets
// @Tags bets
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/bets [get]
func (h *Handler) ListBets(w http.ResponseWriter, r *http.Request) {
	_, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	bets := store.List()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"bets":  bets,
		"count": len(bets),
	})
}

type addBetRequest struct {
	League      string  `json:"league"`
	PlayerA     string  `json:"player_a"`
	PlayerB     string  `json:"player_b"`
	DisplayTime string  `json:"display_time"`
	Type        string  `json:"type"`
	Units       float64 `json:"units"`
	Odds        string  `json:"odds"`
	Notes       string  `json:"notes"`
	SlateDate   string  `json:"slate_date"` // "2006-01-02", defaults to today
}

// AddBet adds one manually entered bet to the front of the queue.
// Auto-posting starts disabled; the user arms bets explicitly.
// @Summary Add a bet
// @Tags bets
// @Accept json
// @Produce json
// @Success 201 {object} bet.Bet
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/bets [post]
func (h *Handler) AddBet(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	var req addBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.PlayerA) == "" || strings.TrimSpace(req.PlayerB) == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Both player names are required")
		return
	}
	if req.Units <= 0 {
		req.Units = 1
	}
	if strings.TrimSpace(req.Type) == "" {
		req.Type = "OVER"
	}
	if strings.TrimSpace(req.League) == "" {
		req.League = "Unknown League"
	}

	settings, _ := h.sessions.Settings()
	loc := settings.Location()

	b := bet.Bet{
		ID:          uuid.NewString(),
		League:      strings.TrimSpace(req.League),
		PlayerA:     strings.TrimSpace(req.PlayerA),
		PlayerB:     strings.TrimSpace(req.PlayerB),
		DisplayTime: strings.TrimSpace(req.DisplayTime),
		Type:        strings.ToUpper(strings.TrimSpace(req.Type)),
		Units:       req.Units,
		Odds:        strings.TrimSpace(req.Odds),
		Notes:       req.Notes,
		Result:      bet.ResultPending,
		CreatedAt:   time.Now().UTC(),
	}
	if at, ok := schedule.ResolveMatchTime(b.DisplayTime, slateDateOr(req.SlateDate, loc), loc); ok {
		b.MatchTime = &at
	}

	if err := store.Add(r.Context(), b); err != nil {
		h.logger.Error("add bet failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save bet")
		return
	}
	h.invalidateStats(user)
	respond.WriteJSONObject(w, http.StatusCreated, b)
}

type updateBetRequest struct {
	bet.Patch
	SlateDate string `json:"slate_date"`
}

// UpdateBet merges a partial update into one bet. When the display time
// changes and no explicit match time accompanies it, the match instant is
// re-resolved against the slate date.
// @Summary Update a bet
// @Tags bets
// @Accept json
// @Produce json
// @Success 200 {object} bet.Bet
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/bets/{betID} [patch]
func (h *Handler) UpdateBet(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "betID")
	if _, found := store.Get(id); !found {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Bet not found")
		return
	}

	var req updateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}

	if req.DisplayTime != nil && req.MatchTime == nil {
		settings, _ := h.sessions.Settings()
		loc := settings.Location()
		if at, ok := schedule.ResolveMatchTime(*req.DisplayTime, slateDateOr(req.SlateDate, loc), loc); ok {
			req.MatchTime = &at
		}
	}

	if err := store.Update(r.Context(), id, req.Patch); err != nil {
		h.logger.Error("update bet failed", "user", user, "bet_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save bet")
		return
	}
	h.invalidateStats(user)

	updated, _ := store.Get(id)
	respond.WriteJSONObject(w, http.StatusOK, updated)
}

// DeleteBet removes one bet.
// @Summary Delete a bet
// @Tags bets
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/bets/{betID} [delete]
func (h *Handler) DeleteBet(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "betID")
	if _, found := store.Get(id); !found {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Bet not found")
		return
	}
	if err := store.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete bet failed", "user", user, "bet_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to delete bet")
		return
	}
	h.invalidateStats(user)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// ClearBets empties the queue.
// @Summary Clear all bets
// @Tags bets
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/bets [delete]
func (h *Handler) ClearBets(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		h.logger.Error("clear bets failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to clear bets")
		return
	}
	h.invalidateStats(user)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

type setResultRequest struct {
	Result bet.Result `json:"result"`
}

// SetBetResult grades one bet. Re-grading with the same result is a no-op.
// @Summary Grade a bet
// @Tags bets
// @Accept json
// @Produce json
// @Success 200 {object} bet.Bet
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/bets/{betID}/result [post]
func (h *Handler) SetBetResult(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "betID")
	if _, found := store.Get(id); !found {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Bet not found")
		return
	}

	var req setResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if !req.Result.Valid() {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_RESULT",
			"Result must be PENDING, WIN, LOSS or PUSH")
		return
	}

	if err := store.SetResult(r.Context(), id, req.Result); err != nil {
		h.logger.Error("grade bet failed", "user", user, "bet_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save result")
		return
	}
	h.invalidateStats(user)

	updated, _ := store.Get(id)
	respond.WriteJSONObject(w, http.StatusOK, updated)
}

// PostBetNow sends the alert immediately, bypassing the schedule. A
// successful send marks the bet posted so the scheduler never re-sends it.
// @Summary Post a bet now
// @Tags bets
// @Produce json
// @Success 200 {object} bet.Bet
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/bets/{betID}/post [post]
func (h *Handler) PostBetNow(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "betID")
	b, found := store.Get(id)
	if !found {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Bet not found")
		return
	}
	if b.Posted {
		respond.WriteError(w, http.StatusConflict, "ALREADY_POSTED", "Bet has already been posted")
		return
	}

	settings, _ := h.sessions.Settings()
	if err := h.delivery.PostBetAlert(r.Context(), b, settings); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadGateway,
			"DELIVERY_FAILED", "Webhook delivery failed", err.Error())
		return
	}
	if _, err := store.MarkPosted(r.Context(), id); err != nil {
		h.logger.Error("failed to persist posted state", "user", user, "bet_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save posted state")
		return
	}
	h.logger.Info("Bet posted manually", "user", user, "bet_id", id)

	updated, _ := store.Get(id)
	respond.WriteJSONObject(w, http.StatusOK, updated)
}

// ScheduleAll arms auto-posting for every unposted bet whose match time is
// still in the future.
// @Summary Schedule all future bets
// @Tags bets
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/bets/schedule-all [post]
func (h *Handler) ScheduleAll(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	armed, err := store.ScheduleAll(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("schedule all failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save schedule")
		return
	}
	h.logger.Info("Scheduled all future bets", "user", user, "armed", armed)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"armed": armed})
}
