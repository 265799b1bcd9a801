package handler

import (
	"encoding/json"
	"net/http"

	"commissioner/internal/api/respond"
	"commissioner/internal/bet"
	"commissioner/internal/cache"
)

// GetStats returns the unit-based performance summary over graded bets.
// Served from cache with ETag revalidation; any bet mutation invalidates it.
// @Summary Performance summary
// @Tags stats
// @Produce json
// @Success 200 {object} bet.Summary
// @Success 304 "Not Modified"
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	key := "stats:" + user + ":summary"
	h.serveCached(w, r, key, func() (interface{}, error) {
		settings, _ := h.sessions.Settings()
		return bet.Summarize(store.List(), settings.DefaultOdds), nil
	})
}

// GetStatsByLeague returns net units per league over graded bets.
// @Summary Net units by league
// @Tags stats
// @Produce json
// @Success 200 {array} bet.LeagueLine
// @Success 304 "Not Modified"
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/stats/leagues [get]
func (h *Handler) GetStatsByLeague(w http.ResponseWriter, r *http.Request) {
	user, store, ok := h.requireSession(w)
	if !ok {
		return
	}
	key := "stats:" + user + ":leagues"
	h.serveCached(w, r, key, func() (interface{}, error) {
		settings, _ := h.sessions.Settings()
		return bet.ByLeague(store.List(), settings.DefaultOdds), nil
	})
}

// serveCached answers from the TTL cache when possible, honoring
// If-None-Match, and fills the cache on a miss.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, build func() (interface{}, error)) {
	if data, etag, hit := h.cache.Get(key); hit {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLStats, true)
		return
	}

	v, err := build()
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to compute stats")
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to encode stats")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLStats)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLStats, false)
}
