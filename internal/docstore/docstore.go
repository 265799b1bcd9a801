// Package docstore persists per-user JSON documents on Postgres: one bet
// collection and one settings object per account, plus a process-wide
// session pointer. The scheduling engine only needs these get/set
// semantics; everything else lives in memory.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"commissioner/internal/bet"
)

var (
	// ErrDuplicateAccount is returned when registering an existing username.
	ErrDuplicateAccount = errors.New("username already exists")
	// ErrUnknownAccount is returned when a username has no account row.
	ErrUnknownAccount = errors.New("user not found")
)

// Store reads and writes the per-user documents.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a document store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --------------------------------------------------------------------------
// Accounts
// --------------------------------------------------------------------------

// CreateAccount inserts a new account row with an already-hashed password.
func (s *Store) CreateAccount(ctx context.Context, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx, "account_create", username, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// AccountHash returns the stored password hash for a username.
func (s *Store) AccountHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, "account_get", username).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownAccount
	}
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	return hash, nil
}

// --------------------------------------------------------------------------
// Bet documents
// --------------------------------------------------------------------------

// LoadBets returns the user's bet collection; a missing document is an
// empty collection.
func (s *Store) LoadBets(ctx context.Context, username string) ([]bet.Bet, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, "bets_load", username).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bets: %w", err)
	}
	var bets []bet.Bet
	if err := json.Unmarshal(doc, &bets); err != nil {
		return nil, fmt.Errorf("decode bets document: %w", err)
	}
	return bets, nil
}

// SaveBets upserts the user's full bet collection.
func (s *Store) SaveBets(ctx context.Context, username string, bets []bet.Bet) error {
	if bets == nil {
		bets = []bet.Bet{}
	}
	doc, err := json.Marshal(bets)
	if err != nil {
		return fmt.Errorf("encode bets document: %w", err)
	}
	if _, err := s.pool.Exec(ctx, "bets_save", username, doc); err != nil {
		return fmt.Errorf("save bets: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Settings documents
// --------------------------------------------------------------------------

// LoadSettings returns the user's settings; ok is false when the user has
// never saved any (caller applies defaults).
func (s *Store) LoadSettings(ctx context.Context, username string) (bet.Settings, bool, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, "settings_load", username).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return bet.Settings{}, false, nil
	}
	if err != nil {
		return bet.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}
	var settings bet.Settings
	if err := json.Unmarshal(doc, &settings); err != nil {
		return bet.Settings{}, false, fmt.Errorf("decode settings document: %w", err)
	}
	return settings, true, nil
}

// SaveSettings upserts the user's settings document.
func (s *Store) SaveSettings(ctx context.Context, username string, settings bet.Settings) error {
	doc, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings document: %w", err)
	}
	if _, err := s.pool.Exec(ctx, "settings_save", username, doc); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Session pointer
// --------------------------------------------------------------------------

// SessionUser returns the persisted current-session username; ok is false
// when nobody is logged in.
func (s *Store) SessionUser(ctx context.Context) (string, bool, error) {
	var username *string
	err := s.pool.QueryRow(ctx, "session_get").Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load session: %w", err)
	}
	if username == nil || *username == "" {
		return "", false, nil
	}
	return *username, true, nil
}

// SetSessionUser records the current-session username.
func (s *Store) SetSessionUser(ctx context.Context, username string) error {
	if _, err := s.pool.Exec(ctx, "session_set", username); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClearSession removes the current-session pointer.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "session_clear"); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
