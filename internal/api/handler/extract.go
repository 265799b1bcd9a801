package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"commissioner/internal/api/respond"
	"commissioner/internal/bet"
	"commissioner/internal/schedule"
)

type extractRequest struct {
	Image     string `json:"image"`      // base64, optionally a data URL
	SlateDate string `json:"slate_date"` // "2006-01-02", defaults to today
}

// ExtractSlate runs vision extraction over a slate screenshot and adds the
// extracted bets to the queue as one batch. The batch is all-or-nothing:
// any extraction error leaves the queue untouched.
// @Summary Extract bets from a slate image
// @Tags extract
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/extract [post]
func (h *Handler) ExtractSlate(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	if !h.extractor.Configured() {
		respond.WriteError(w, http.StatusServiceUnavailable,
			"EXTRACTION_UNCONFIGURED", "Vision extraction API key is not configured")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if req.Image == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Image payload is required")
		return
	}

	raw, err := h.extractor.AnalyzeSlate(r.Context(), req.Image)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadGateway,
			"EXTRACTION_FAILED", "Slate analysis failed", err.Error())
		return
	}

	settings, _ := h.sessions.Settings()
	loc := settings.Location()
	date := slateDateOr(req.SlateDate, loc)

	now := time.Now().UTC()
	batch := make([]bet.Bet, 0, len(raw))
	for _, c := range raw {
		b := bet.Bet{
			ID:          uuid.NewString(),
			League:      c.League,
			PlayerA:     c.PlayerA,
			PlayerB:     c.PlayerB,
			DisplayTime: c.Time,
			Type:        c.Type,
			Units:       c.Units,
			Result:      bet.ResultPending,
			CreatedAt:   now,
		}
		if at, ok := schedule.ResolveMatchTime(c.Time, date, loc); ok {
			b.MatchTime = &at
		}
		batch = append(batch, b)
	}

	if err := store.AddBatch(r.Context(), batch); err != nil {
		h.logger.Error("save extracted batch failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save bets")
		return
	}
	h.invalidateStats(user)
	h.logger.Info("Slate extracted", "user", user, "bets", len(batch), "date", date)

	respond.WriteJSONObject(w, http.StatusCreated, map[string]interface{}{
		"bets":  batch,
		"count": len(batch),
	})
}
