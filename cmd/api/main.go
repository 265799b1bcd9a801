// Command api is the Commissioner slate manager server.
//
// Usage:
//
//	commissioner-api
//	API_PORT=8080 commissioner-api

// @title Commissioner Slate API
// @version 1.0.0
// @description Betting slate manager: vision extraction of slate screenshots, an autonomous scheduler that posts webhook alerts ahead of match start, grading and unit-based performance stats.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"commissioner/internal/api"
	"commissioner/internal/api/handler"
	"commissioner/internal/cache"
	"commissioner/internal/config"
	"commissioner/internal/db"
	"commissioner/internal/delivery"
	"commissioner/internal/docstore"
	"commissioner/internal/extract"
	"commissioner/internal/recap"
	"commissioner/internal/schedule"
	"commissioner/internal/session"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Document store and session context
	docs := docstore.New(pool.Pool)
	sessions := session.NewManager(docs, logger)
	if err := sessions.Resume(ctx); err != nil {
		logger.Warn("Could not resume previous session", "error", err)
	}

	// Outbound clients
	webhooks := delivery.NewClient(cfg.WebhookReqsPerMin, logger)
	extractor := extract.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiReqsPerMin, logger)
	if !extractor.Configured() {
		logger.Info("Vision extraction disabled (no GEMINI_API_KEY)")
	}

	// Recap service
	startupSettings, _ := sessions.Settings()
	recaps := recap.New(sessions, webhooks, startupSettings, logger)
	defer recaps.Stop()

	// Auto-post scheduler worker
	worker := schedule.NewWorker(sessions, webhooks, cfg.SchedulerTick, nil, logger)
	go worker.Run(ctx)

	// Create router
	h := handler.New(pool.Pool, sessions, docs, extractor, webhooks, recaps, appCache, cfg, logger)
	router := api.NewRouter(h, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Commissioner Slate API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
