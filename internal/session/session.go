// Package session owns the process-wide session context: which user is
// logged in, their in-memory bet store, and their settings. The whole
// context is swapped atomically on login/logout so two users' state can
// never interleave, and the persisted session pointer lets a restart
// resume exactly where the app stopped.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"commissioner/internal/bet"
)

// ErrNoSession is returned by operations that need a logged-in user.
var ErrNoSession = errors.New("no active session")

// Persistence is the document-store surface the manager needs.
type Persistence interface {
	LoadBets(ctx context.Context, username string) ([]bet.Bet, error)
	SaveBets(ctx context.Context, username string, bets []bet.Bet) error
	LoadSettings(ctx context.Context, username string) (bet.Settings, bool, error)
	SaveSettings(ctx context.Context, username string, settings bet.Settings) error
	SessionUser(ctx context.Context) (string, bool, error)
	SetSessionUser(ctx context.Context, username string) error
	ClearSession(ctx context.Context) error
}

type active struct {
	user     string
	store    *bet.Store
	settings bet.Settings
}

// Manager holds the current session context.
type Manager struct {
	mu     sync.RWMutex
	cur    *active
	docs   Persistence
	logger *slog.Logger
}

// NewManager creates a session manager.
func NewManager(docs Persistence, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{docs: docs, logger: logger}
}

// Open loads the user's documents and makes them the active session.
// The queue and settings pair is swapped in one step.
func (m *Manager) Open(ctx context.Context, username string) error {
	bets, err := m.docs.LoadBets(ctx, username)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	settings, ok, err := m.docs.LoadSettings(ctx, username)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if !ok {
		settings = bet.DefaultSettings()
	}

	store := bet.NewStore(bets, func(ctx context.Context, bets []bet.Bet) error {
		return m.docs.SaveBets(ctx, username, bets)
	})

	m.mu.Lock()
	m.cur = &active{user: username, store: store, settings: settings}
	m.mu.Unlock()

	if err := m.docs.SetSessionUser(ctx, username); err != nil {
		return err
	}
	m.logger.Info("Session opened", "user", username, "bets", store.Len())
	return nil
}

// Resume restores the session persisted before the last shutdown, if any.
// A bet that was due but unposted at shutdown is due again immediately.
func (m *Manager) Resume(ctx context.Context) error {
	username, ok, err := m.docs.SessionUser(ctx)
	if err != nil {
		return fmt.Errorf("resume session: %w", err)
	}
	if !ok {
		return nil
	}
	return m.Open(ctx, username)
}

// Close logs the current user out and clears the persisted pointer.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	had := m.cur != nil
	user := ""
	if had {
		user = m.cur.user
	}
	m.cur = nil
	m.mu.Unlock()

	if err := m.docs.ClearSession(ctx); err != nil {
		return err
	}
	if had {
		m.logger.Info("Session closed", "user", user)
	}
	return nil
}

// CurrentUser returns the logged-in username.
func (m *Manager) CurrentUser() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return "", false
	}
	return m.cur.user, true
}

// Store returns the active user's bet store.
func (m *Manager) Store() (*bet.Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return nil, false
	}
	return m.cur.store, true
}

// Settings returns a copy of the active user's settings.
func (m *Manager) Settings() (bet.Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return bet.Settings{}, false
	}
	return m.cur.settings, true
}

// UpdateSettings replaces and persists the active user's settings.
func (m *Manager) UpdateSettings(ctx context.Context, settings bet.Settings) error {
	m.mu.Lock()
	if m.cur == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	user := m.cur.user
	m.cur.settings = settings
	m.mu.Unlock()

	return m.docs.SaveSettings(ctx, user, settings)
}

// --------------------------------------------------------------------------
// schedule.Queue implementation
// --------------------------------------------------------------------------

// Snapshot returns a consistent copy of the active queue and settings for
// one scheduler tick.
func (m *Manager) Snapshot() (string, []bet.Bet, bet.Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return "", nil, bet.Settings{}, false
	}
	return m.cur.user, m.cur.store.List(), m.cur.settings, true
}

// Refresh re-reads a single bet and the current settings just before a
// delivery attempt.
func (m *Manager) Refresh(id string) (bet.Bet, bet.Settings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return bet.Bet{}, bet.Settings{}, false
	}
	b, ok := m.cur.store.Get(id)
	if !ok {
		return bet.Bet{}, bet.Settings{}, false
	}
	return b, m.cur.settings, true
}

// MarkPosted flips the terminal posted state on the active queue.
func (m *Manager) MarkPosted(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	store := (*bet.Store)(nil)
	if m.cur != nil {
		store = m.cur.store
	}
	m.mu.RUnlock()
	if store == nil {
		return false, nil
	}
	return store.MarkPosted(ctx, id)
}
