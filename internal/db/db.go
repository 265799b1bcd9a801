// Package db provides a pgxpool-based connection pool with prepared
// statement registration and schema bootstrap for the document store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commissioner/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool, ensuring the document
// store schema exists.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	// Schema must exist before AfterConnect prepares statements against it.
	if err := ensureSchema(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// ensureSchema creates the document store tables on a throwaway
// connection. The layout is two JSONB documents per user (bets, settings),
// an accounts table, and a single-row session pointer.
func ensureSchema(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect for schema bootstrap: %w", err)
	}
	defer conn.Close(ctx)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			username      TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bet_documents (
			username   TEXT PRIMARY KEY REFERENCES accounts(username) ON DELETE CASCADE,
			doc        JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS settings_documents (
			username   TEXT PRIMARY KEY REFERENCES accounts(username) ON DELETE CASCADE,
			doc        JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS app_session (
			id       BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			username TEXT REFERENCES accounts(username) ON DELETE SET NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}
	return nil
}

// registerPreparedStatements registers all statements the document store
// uses. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Accounts
		"account_create": "INSERT INTO accounts (username, password_hash) VALUES ($1, $2)",
		"account_get":    "SELECT password_hash FROM accounts WHERE username = $1",

		// Bet documents
		"bets_load": "SELECT doc FROM bet_documents WHERE username = $1",
		"bets_save": `INSERT INTO bet_documents (username, doc, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (username) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,

		// Settings documents
		"settings_load": "SELECT doc FROM settings_documents WHERE username = $1",
		"settings_save": `INSERT INTO settings_documents (username, doc, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (username) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,

		// Session pointer
		"session_get":   "SELECT username FROM app_session WHERE id",
		"session_set":   `INSERT INTO app_session (id, username) VALUES (TRUE, $1)
			ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		"session_clear": "DELETE FROM app_session WHERE id",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
