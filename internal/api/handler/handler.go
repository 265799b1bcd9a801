// Package handler provides HTTP handlers for all API endpoints.
// Handlers operate on the active session's in-memory bet store; every
// mutation is persisted by the store before the response is written.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"commissioner/internal/api/respond"
	"commissioner/internal/bet"
	"commissioner/internal/cache"
	"commissioner/internal/config"
	"commissioner/internal/delivery"
	"commissioner/internal/docstore"
	"commissioner/internal/extract"
	"commissioner/internal/recap"
	"commissioner/internal/session"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool      *pgxpool.Pool
	sessions  *session.Manager
	docs      *docstore.Store
	extractor *extract.Client
	delivery  *delivery.Client
	recaps    *recap.Service
	cache     *cache.Cache
	cfg       *config.Config
	logger    *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, sessions *session.Manager, docs *docstore.Store,
	extractor *extract.Client, del *delivery.Client, recaps *recap.Service,
	c *cache.Cache, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pool:      pool,
		sessions:  sessions,
		docs:      docs,
		extractor: extractor,
		delivery:  del,
		recaps:    recaps,
		cache:     c,
		cfg:       cfg,
		logger:    logger,
	}
}

// requireSession fetches the active session's store or writes a 401.
func (h *Handler) requireSession(w http.ResponseWriter) (string, *bet.Store, bool) {
	user, ok := h.sessions.CurrentUser()
	if !ok {
		respond.WriteError(w, http.StatusUnauthorized, "NO_SESSION", "No user is logged in")
		return "", nil, false
	}
	store, ok := h.sessions.Store()
	if !ok {
		respond.WriteError(w, http.StatusUnauthorized, "NO_SESSION", "No user is logged in")
		return "", nil, false
	}
	return user, store, true
}

// invalidateStats drops the user's cached stats entries after a mutation.
func (h *Handler) invalidateStats(user string) {
	h.cache.InvalidatePrefix("stats:" + user + ":")
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Commissioner Slate API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} respond.ErrorResponse
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := h.pool.QueryRow(r.Context(), "health_check").Scan(&one); err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable,
			"DB_UNAVAILABLE", "Database health check failed", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status": "healthy", "database": "connected",
	})
}

// HealthCheckCache reports cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.cache.Stats())
}
