// Command slatectl is the operator CLI for the Commissioner slate manager.
// It works against the same database as the server, so it can manage
// accounts and the queue while the server is down.
//
// Usage:
//
//	slatectl account create --user chef --pass secret
//	slatectl session open --user chef
//	slatectl extract --image slate.png --date 2025-06-01
//	slatectl bets list
//	slatectl bets schedule-all
//	slatectl tick
//	slatectl recap send --recap-webhook
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"commissioner/internal/bet"
	"commissioner/internal/config"
	"commissioner/internal/db"
	"commissioner/internal/delivery"
	"commissioner/internal/docstore"
	"commissioner/internal/extract"
	"commissioner/internal/schedule"
	"commissioner/internal/session"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "slatectl",
		Short: "Commissioner slate manager CLI",
	}

	root.AddCommand(accountCmd())
	root.AddCommand(sessionCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(betsCmd())
	root.AddCommand(tickCmd())
	root.AddCommand(recapCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// account command
// --------------------------------------------------------------------------

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(accountCreateCmd())
	return cmd
}

func accountCreateCmd() *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				if err := env.docs.CreateAccount(ctx, user, string(hash)); err != nil {
					return err
				}
				logger.Info("Account created", "user", user)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Username")
	cmd.Flags().StringVar(&pass, "pass", "", "Password")
	return cmd
}

// --------------------------------------------------------------------------
// session command
// --------------------------------------------------------------------------

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the active session pointer",
	}
	cmd.AddCommand(sessionOpenCmd())
	cmd.AddCommand(sessionCloseCmd())
	cmd.AddCommand(sessionStatusCmd())
	return cmd
}

func sessionOpenCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Make a user the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				if _, err := env.docs.AccountHash(ctx, user); err != nil {
					return err
				}
				return env.sessions.Open(ctx, user)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Username")
	return cmd
}

func sessionCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Clear the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				return env.sessions.Close(ctx)
			})
		},
	}
}

func sessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				if user, ok := env.sessions.CurrentUser(); ok {
					logger.Info("Session active", "user", user)
				} else {
					logger.Info("No active session")
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// extract command
// --------------------------------------------------------------------------

func extractCmd() *cobra.Command {
	var imagePath, date string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract bets from a slate image file into the active queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if imagePath == "" {
				return fmt.Errorf("--image is required")
			}
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				store, ok := env.sessions.Store()
				if !ok {
					return session.ErrNoSession
				}
				raw, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}

				extractor := extract.NewClient(env.cfg.GeminiAPIKey, env.cfg.GeminiModel, env.cfg.GeminiReqsPerMin, logger)
				if !extractor.Configured() {
					return fmt.Errorf("GEMINI_API_KEY is required")
				}
				candidates, err := extractor.AnalyzeSlate(ctx, base64.StdEncoding.EncodeToString(raw))
				if err != nil {
					return err
				}

				settings, _ := env.sessions.Settings()
				loc := settings.Location()
				if date == "" {
					date = time.Now().In(loc).Format("2006-01-02")
				}

				batch := make([]bet.Bet, 0, len(candidates))
				now := time.Now().UTC()
				for _, c := range candidates {
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
				if err := store.AddBatch(ctx, batch); err != nil {
					return err
				}
				logger.Info("Slate extracted", "bets", len(batch), "date", date)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the slate screenshot")
	cmd.Flags().StringVar(&date, "date", "", "Slate date (2006-01-02), defaults to today")
	return cmd
}

// --------------------------------------------------------------------------
// bets command
// --------------------------------------------------------------------------

func betsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bets",
		Short: "Inspect and schedule the active queue",
	}
	cmd.AddCommand(betsListCmd())
	cmd.AddCommand(betsScheduleAllCmd())
	return cmd
}

func betsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active queue, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				store, ok := env.sessions.Store()
				if !ok {
					return session.ErrNoSession
				}
				for _, b := range store.List() {
					logger.Info("bet",
						"id", b.ID,
						"match", b.PlayerA+" vs "+b.PlayerB,
						"league", b.League,
						"type", b.Type,
						"units", b.Units,
						"time", b.DisplayTime,
						"result", b.Result,
						"auto", b.AutoPost,
						"posted", b.Posted)
				}
				return nil
			})
		},
	}
}

func betsScheduleAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule-all",
		Short: "Arm auto-posting for all future unposted bets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				store, ok := env.sessions.Store()
				if !ok {
					return session.ErrNoSession
				}
				armed, err := store.ScheduleAll(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Info("Scheduled all future bets", "armed", armed)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// tick command
// --------------------------------------------------------------------------

func tickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass over the active queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				webhooks := delivery.NewClient(env.cfg.WebhookReqsPerMin, logger)
				worker := schedule.NewWorker(env.sessions, webhooks, 0, nil, logger)
				worker.Tick(ctx)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// recap command
// --------------------------------------------------------------------------

func recapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Daily recap",
	}
	cmd.AddCommand(recapSendCmd())
	return cmd
}

func recapSendCmd() *cobra.Command {
	var useRecapWebhook bool
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the daily recap now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCtl(func(ctx context.Context, env *ctlEnv) error {
				store, ok := env.sessions.Store()
				if !ok {
					return session.ErrNoSession
				}
				settings, _ := env.sessions.Settings()
				sum := bet.Summarize(store.List(), settings.DefaultOdds)
				webhooks := delivery.NewClient(env.cfg.WebhookReqsPerMin, logger)
				if err := webhooks.PostRecap(ctx, sum, settings, useRecapWebhook); err != nil {
					return err
				}
				logger.Info("Recap sent", "record", sum.Record(), "net_units", sum.NetUnits)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&useRecapWebhook, "recap-webhook", false, "Use the separate recap webhook URL if configured")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

type ctlEnv struct {
	cfg      *config.Config
	pool     *db.Pool
	docs     *docstore.Store
	sessions *session.Manager
}

// runCtl handles config loading, DB connection, session resume, and context
// cancellation.
func runCtl(fn func(ctx context.Context, env *ctlEnv) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	docs := docstore.New(pool.Pool)
	sessions := session.NewManager(docs, logger)
	if err := sessions.Resume(ctx); err != nil {
		return err
	}

	return fn(ctx, &ctlEnv{cfg: cfg, pool: pool, docs: docs, sessions: sessions})
}
