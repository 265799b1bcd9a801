package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"commissioner/internal/api/handler"
	"commissioner/internal/config"
)

//go:embed docs/doc.json
var openAPISpec []byte

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(h *handler.Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI over the static spec.
	r.Get("/docs/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPISpec)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Accounts and the single active session
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/session", h.Session)
		})

		// Bet queue
		r.Route("/bets", func(r chi.Router) {
			r.Get("/", h.ListBets)
			r.Post("/", h.AddBet)
			r.Delete("/", h.ClearBets)
			r.Post("/schedule-all", h.ScheduleAll)
			r.Route("/{betID}", func(r chi.Router) {
				r.Patch("/", h.UpdateBet)
				r.Delete("/", h.DeleteBet)
				r.Post("/post", h.PostBetNow)
				r.Post("/result", h.SetBetResult)
			})
		})

		// Slate extraction
		r.Post("/extract", h.ExtractSlate)

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)

		// Stats
		r.Get("/stats", h.GetStats)
		r.Get("/stats/leagues", h.GetStatsByLeague)

		// Recap
		r.Route("/recap", func(r chi.Router) {
			r.Post("/send", h.SendRecap)
			r.Get("/schedule", h.RecapSchedule)
			r.Post("/schedule", h.ScheduleRecap)
			r.Delete("/schedule", h.UnscheduleRecap)
		})
	})

	return r
}
