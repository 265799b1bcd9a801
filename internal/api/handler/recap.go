package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"commissioner/internal/api/respond"
	"commissioner/internal/delivery"
)

type recapRequest struct {
	At              string `json:"at"` // "HH:MM" wall-clock in the slate timezone
	UseRecapWebhook bool   `json:"use_recap_webhook"`
}

// SendRecap posts the daily recap immediately.
// @Summary Send the recap now
// @Tags recap
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/recap/send [post]
func (h *Handler) SendRecap(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.requireSession(w); !ok {
		return
	}
	var req recapRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.recaps.SendNow(r.Context(), req.UseRecapWebhook); err != nil {
		if errors.Is(err, delivery.ErrNoWebhook) {
			respond.WriteError(w, http.StatusConflict, "NO_WEBHOOK", "No webhook URL configured")
			return
		}
		respond.WriteErrorDetail(w, http.StatusBadGateway,
			"DELIVERY_FAILED", "Recap delivery failed", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"sent": true})
}

// ScheduleRecap arms the one-shot daily recap for a wall-clock time.
// @Summary Schedule the recap
// @Tags recap
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/recap/schedule [post]
func (h *Handler) ScheduleRecap(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.requireSession(w); !ok {
		return
	}
	var req recapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if err := h.recaps.Schedule(req.At, req.UseRecapWebhook); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_SCHEDULE",
			"Could not schedule recap", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"scheduled": true, "at": req.At, "use_recap_webhook": req.UseRecapWebhook,
	})
}

// UnscheduleRecap disarms a pending recap.
// @Summary Unschedule the recap
// @Tags recap
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/recap/schedule [delete]
func (h *Handler) UnscheduleRecap(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.requireSession(w); !ok {
		return
	}
	h.recaps.Unschedule()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"scheduled": false})
}

// RecapSchedule reports whether a recap is armed and for when.
// @Summary Recap schedule status
// @Tags recap
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/recap/schedule [get]
func (h *Handler) RecapSchedule(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.requireSession(w); !ok {
		return
	}
	armed, at, separate := h.recaps.Status()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"scheduled": armed, "at": at, "use_recap_webhook": separate,
	})
}
