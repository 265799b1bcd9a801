package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"commissioner/internal/api/respond"
	"commissioner/internal/bet"
)

// GetSettings returns the active user's settings document.
// @Summary Get settings
// @Tags settings
// @Produce json
// @Success 200 {object} bet.Settings
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.requireSession(w); !ok {
		return
	}
	settings, _ := h.sessions.Settings()
	respond.WriteJSONObject(w, http.StatusOK, settings)
}

// PutSettings replaces the active user's settings document.
// @Summary Replace settings
// @Tags settings
// @Accept json
// @Produce json
// @Success 200 {object} bet.Settings
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.requireSession(w)
	if !ok {
		return
	}
	var settings bet.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	if settings.Timezone != "" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_TIMEZONE",
				"Unknown timezone identifier")
			return
		}
	}
	if settings.LeadTimeMinutes < 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_LEAD_TIME",
			"Lead time must be zero or positive")
		return
	}

	if err := h.sessions.UpdateSettings(r.Context(), settings); err != nil {
		h.logger.Error("save settings failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "PERSIST_FAILED", "Failed to save settings")
		return
	}
	h.invalidateStats(user)
	respond.WriteJSONObject(w, http.StatusOK, settings)
}
