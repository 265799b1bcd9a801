package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"commissioner/internal/bet"
)

// DefaultTickInterval is the reference polling cadence.
const DefaultTickInterval = 10 * time.Second

// Deliverer sends one bet alert to the configured endpoint. It reports
// Success/Failure only; retry policy belongs to the worker.
type Deliverer interface {
	PostBetAlert(ctx context.Context, b bet.Bet, s bet.Settings) error
}

// Queue is the worker's view of the active session. Snapshot returns a
// consistent copy of the queue and settings (ok=false when no user is
// logged in). Refresh re-reads one bet just before delivery so that edits
// made after the snapshot are observed. MarkPosted atomically flips the
// terminal posted state and reports whether this call made the transition.
type Queue interface {
	Snapshot() (user string, bets []bet.Bet, settings bet.Settings, ok bool)
	Refresh(id string) (bet.Bet, bet.Settings, bool)
	MarkPosted(ctx context.Context, id string) (bool, error)
}

// Worker is the polling engine. Each tick scans the queue in order,
// delivers every due auto-enabled bet, and marks successes as posted.
// Failures are left in place and retried on the next tick with no cap and
// no cooldown.
type Worker struct {
	queue     Queue
	deliverer Deliverer
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	// ticking guards against a re-entrant tick if Run is ever driven by
	// overlapping timers; the Run loop itself executes ticks sequentially.
	ticking atomic.Bool
}

// NewWorker creates a scheduler worker. interval <= 0 selects the default
// cadence; nowFn may be nil outside tests.
func NewWorker(queue Queue, deliverer Deliverer, interval time.Duration, nowFn func() time.Time, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:     queue,
		deliverer: deliverer,
		interval:  interval,
		now:       nowFn,
		logger:    logger,
	}
}

// Run drives the polling loop until ctx is cancelled. Intended to be
// called with `go`. A tick always runs to completion before the next one
// starts.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Auto-post worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick(ctx)
		case <-ctx.Done():
			w.logger.Info("Auto-post worker stopped")
			return
		}
	}
}

// Tick runs one scan over the queue. Exported for the worker tests and the
// operator CLI; skips silently if another tick is still in flight.
func (w *Worker) Tick(ctx context.Context) {
	if !w.ticking.CompareAndSwap(false, true) {
		return
	}
	defer w.ticking.Store(false)

	user, bets, settings, ok := w.queue.Snapshot()
	if !ok {
		return
	}
	now := w.now()

	sent, failed := 0, 0
	for _, b := range bets {
		if !b.AutoEligible() || !Due(b, settings, now) {
			continue
		}

		// Re-read the bet: the user may have disabled auto-post, pinned a
		// different time, or posted it manually since the snapshot.
		fresh, freshSettings, found := w.queue.Refresh(b.ID)
		if !found || !fresh.AutoEligible() || !Due(fresh, freshSettings, now) {
			continue
		}

		if err := w.deliver(ctx, fresh, freshSettings); err != nil {
			// Left due; retried next tick without a cap or cooldown.
			failed++
			w.logger.Debug("auto-post attempt failed",
				"bet_id", fresh.ID, "match", fresh.PlayerA+" vs "+fresh.PlayerB, "error", err)
			continue
		}

		changed, err := w.queue.MarkPosted(ctx, fresh.ID)
		if err != nil {
			w.logger.Warn("failed to persist posted state", "bet_id", fresh.ID, "error", err)
			continue
		}
		if changed {
			sent++
			w.logger.Info("Auto-posted bet",
				"user", user, "bet_id", fresh.ID,
				"match", fresh.PlayerA+" vs "+fresh.PlayerB)
		}
	}

	if sent+failed > 0 {
		w.logger.Info("auto-post tick", "sent", sent, "failed", failed)
	}
}

// deliver isolates one bet's delivery attempt: a panicking transport must
// not abort the remaining bets or kill the polling loop.
func (w *Worker) deliver(ctx context.Context, b bet.Bet, s bet.Settings) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic during delivery",
				"bet_id", b.ID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("delivery panic: %v", r)
		}
	}()
	return w.deliverer.PostBetAlert(ctx, b, s)
}
