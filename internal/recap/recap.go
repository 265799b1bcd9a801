// Package recap builds and schedules the end-of-period summary post. A
// scheduled recap fires once at the chosen wall-clock time and then
// disarms, matching the one-shot behavior of the manual tool it replaces.
package recap

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/robfig/cron/v3"

	"commissioner/internal/bet"
)

var timeOfDay = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Sessions is the session surface the recap service needs.
type Sessions interface {
	Snapshot() (user string, bets []bet.Bet, settings bet.Settings, ok bool)
}

// Sender posts a recap summary.
type Sender interface {
	PostRecap(ctx context.Context, sum bet.Summary, s bet.Settings, useRecapWebhook bool) error
}

// Service manages the scheduled daily recap.
type Service struct {
	mu       sync.Mutex
	c        *cron.Cron
	entry    cron.EntryID
	armed    bool
	at       string
	separate bool

	sessions Sessions
	sender   Sender
	logger   *slog.Logger
}

// New creates the recap service. The cron runner evaluates specs in the
// given timezone (the slate timezone at startup).
func New(sessions Sessions, sender Sender, settings bet.Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithLocation(settings.Location()))
	c.Start()
	return &Service{c: c, sessions: sessions, sender: sender, logger: logger}
}

// Stop halts the cron runner.
func (s *Service) Stop() {
	s.c.Stop()
}

// Schedule arms the daily recap at the given "HH:MM" wall-clock time.
// Re-scheduling replaces any armed entry.
func (s *Service) Schedule(at string, useRecapWebhook bool) error {
	m := timeOfDay.FindStringSubmatch(at)
	if m == nil {
		return fmt.Errorf("invalid recap time %q (want HH:MM)", at)
	}
	spec := fmt.Sprintf("%s %s * * *", m[2], m[1])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.c.Remove(s.entry)
		s.armed = false
	}
	entry, err := s.c.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("schedule recap: %w", err)
	}
	s.entry = entry
	s.armed = true
	s.at = at
	s.separate = useRecapWebhook
	s.logger.Info("Recap scheduled", "at", at, "separate_webhook", useRecapWebhook)
	return nil
}

// Unschedule disarms a pending recap.
func (s *Service) Unschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.c.Remove(s.entry)
		s.armed = false
		s.logger.Info("Recap unscheduled")
	}
}

// Status reports whether a recap is armed and for when.
func (s *Service) Status() (armed bool, at string, separate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed, s.at, s.separate
}

// fire sends the recap and disarms the schedule (one shot per arming).
func (s *Service) fire() {
	s.mu.Lock()
	separate := s.separate
	if s.armed {
		s.c.Remove(s.entry)
		s.armed = false
	}
	s.mu.Unlock()

	if err := s.SendNow(context.Background(), separate); err != nil {
		s.logger.Warn("scheduled recap failed", "error", err)
	}
}

// SendNow builds the summary from the active session's graded bets and
// posts it immediately.
func (s *Service) SendNow(ctx context.Context, useRecapWebhook bool) error {
	user, bets, settings, ok := s.sessions.Snapshot()
	if !ok {
		return fmt.Errorf("no active session")
	}
	sum := bet.Summarize(bets, settings.DefaultOdds)
	if err := s.sender.PostRecap(ctx, sum, settings, useRecapWebhook); err != nil {
		return err
	}
	s.logger.Info("Recap sent", "user", user, "record", sum.Record(), "net_units", sum.NetUnits)
	return nil
}
