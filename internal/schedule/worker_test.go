package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commissioner/internal/bet"
)

// fakeQueue is an in-memory Queue for worker tests.
type fakeQueue struct {
	mu       sync.Mutex
	bets     []bet.Bet
	settings bet.Settings
}

func (q *fakeQueue) Snapshot() (string, []bet.Bet, bet.Settings, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]bet.Bet, len(q.bets))
	copy(out, q.bets)
	return "tester", out, q.settings, true
}

func (q *fakeQueue) Refresh(id string) (bet.Bet, bet.Settings, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, b := range q.bets {
		if b.ID == id {
			return b, q.settings, true
		}
	}
	return bet.Bet{}, bet.Settings{}, false
}

func (q *fakeQueue) MarkPosted(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.bets {
		if q.bets[i].ID == id {
			if q.bets[i].Posted {
				return false, nil
			}
			q.bets[i].Posted = true
			q.bets[i].AutoPost = false
			return true, nil
		}
	}
	return false, nil
}

func (q *fakeQueue) get(id string) bet.Bet {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, b := range q.bets {
		if b.ID == id {
			return b
		}
	}
	return bet.Bet{}
}

// fakeDeliverer records attempts and fails the first failures deliveries.
type fakeDeliverer struct {
	mu       sync.Mutex
	attempts []string
	failures int
	panics   bool
}

func (d *fakeDeliverer) PostBetAlert(_ context.Context, b bet.Bet, _ bet.Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, b.ID)
	if d.panics {
		panic("transport blew up")
	}
	if d.failures > 0 {
		d.failures--
		return errors.New("endpoint unavailable")
	}
	return nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attempts)
}

func newTestWorker(q *fakeQueue, d *fakeDeliverer, now time.Time) (*Worker, *time.Time) {
	clock := now
	w := NewWorker(q, d, time.Second, func() time.Time { return clock }, nil)
	return w, &clock
}

func TestWorkerDeliversWhenDue(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	q := &fakeQueue{
		bets:     []bet.Bet{{ID: "b1", PlayerA: "A", PlayerB: "B", MatchTime: &match, AutoPost: true}},
		settings: bet.Settings{LeadTimeMinutes: 15},
	}
	d := &fakeDeliverer{}

	// One second before the send time: nothing happens.
	w, clock := newTestWorker(q, d, match.Add(-15*time.Minute).Add(-time.Second))
	w.Tick(context.Background())
	assert.Equal(t, 0, d.count())
	assert.False(t, q.get("b1").Posted)

	// Two seconds later the bet is due.
	*clock = clock.Add(2 * time.Second)
	w.Tick(context.Background())
	assert.Equal(t, 1, d.count())
	assert.True(t, q.get("b1").Posted)
	assert.False(t, q.get("b1").AutoPost)
}

func TestWorkerRetriesFailuresForever(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	q := &fakeQueue{
		bets:     []bet.Bet{{ID: "b1", MatchTime: &match, AutoPost: true}},
		settings: bet.Settings{LeadTimeMinutes: 15},
	}
	d := &fakeDeliverer{failures: 3}
	w, _ := newTestWorker(q, d, match)

	for i := 0; i < 3; i++ {
		w.Tick(context.Background())
		b := q.get("b1")
		assert.False(t, b.Posted, "failed delivery must not mark posted")
		assert.True(t, b.AutoPost, "failed delivery must keep auto-post armed")
	}

	// Fourth tick succeeds exactly once.
	w.Tick(context.Background())
	require.Equal(t, 4, d.count())
	assert.True(t, q.get("b1").Posted)

	// Further ticks never re-send.
	w.Tick(context.Background())
	w.Tick(context.Background())
	assert.Equal(t, 4, d.count())
}

func TestWorkerIgnoresIneligibleBets(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	q := &fakeQueue{
		bets: []bet.Bet{
			{ID: "disabled", MatchTime: &match, AutoPost: false},
			{ID: "posted", MatchTime: &match, AutoPost: true, Posted: true},
			{ID: "no-time", AutoPost: true},
		},
		settings: bet.Settings{LeadTimeMinutes: 15},
	}
	d := &fakeDeliverer{}
	w, _ := newTestWorker(q, d, match.Add(time.Hour))

	w.Tick(context.Background())
	assert.Equal(t, 0, d.count())
}

func TestWorkerObservesEditsAfterSnapshot(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	q := &fakeQueue{
		bets:     []bet.Bet{{ID: "b1", MatchTime: &match, AutoPost: true}},
		settings: bet.Settings{LeadTimeMinutes: 15},
	}
	// Disable auto-post between snapshot and refresh by doing it up front:
	// the refresh re-check is what the worker relies on.
	q.bets[0].AutoPost = false
	d := &fakeDeliverer{}
	w, _ := newTestWorker(q, d, match)

	w.Tick(context.Background())
	assert.Equal(t, 0, d.count())
}

func TestWorkerOverrideSchedule(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	override := match.Add(-2 * time.Hour)
	q := &fakeQueue{
		bets:     []bet.Bet{{ID: "b1", MatchTime: &match, ScheduleOverride: &override, AutoPost: true}},
		settings: bet.Settings{LeadTimeMinutes: 15},
	}
	d := &fakeDeliverer{}

	// Before the override instant nothing fires, even though the override
	// is well before matchTime - lead.
	w, clock := newTestWorker(q, d, override.Add(-time.Minute))
	w.Tick(context.Background())
	assert.Equal(t, 0, d.count())

	*clock = override
	w.Tick(context.Background())
	assert.Equal(t, 1, d.count())
}

func TestWorkerSurvivesDeliveryPanic(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	q := &fakeQueue{
		bets: []bet.Bet{
			{ID: "b1", MatchTime: &match, AutoPost: true},
			{ID: "b2", MatchTime: &match, AutoPost: true},
		},
		settings: bet.Settings{LeadTimeMinutes: 15},
	}
	d := &fakeDeliverer{panics: true}
	w, _ := newTestWorker(q, d, match)

	require.NotPanics(t, func() { w.Tick(context.Background()) })
	// Both bets were attempted despite the first panic.
	assert.Equal(t, 2, d.count())
	assert.False(t, q.get("b1").Posted)
	assert.False(t, q.get("b2").Posted)
}
