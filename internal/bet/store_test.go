package bet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPersister captures every snapshot the store writes.
type recordingPersister struct {
	writes [][]Bet
	err    error
}

func (p *recordingPersister) persist(_ context.Context, bets []Bet) error {
	if p.err != nil {
		return p.err
	}
	p.writes = append(p.writes, bets)
	return nil
}

func TestStoreAddPrependsNewest(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil)

	require.NoError(t, s.Add(ctx, Bet{ID: "a"}))
	require.NoError(t, s.Add(ctx, Bet{ID: "b"}))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
}

func TestStoreAddBatchPreservesBatchOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore([]Bet{{ID: "old"}}, nil)

	batch := []Bet{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	require.NoError(t, s.AddBatch(ctx, batch))

	list := s.List()
	require.Len(t, list, 4)
	assert.Equal(t, []string{"x", "y", "z", "old"},
		[]string{list[0].ID, list[1].ID, list[2].ID, list[3].ID})
}

func TestStoreUpdateUnknownIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := NewStore([]Bet{{ID: "a", Units: 1}}, p.persist)

	units := 2.5
	require.NoError(t, s.Update(ctx, "missing", Patch{Units: &units}))
	assert.Empty(t, p.writes, "no-op update must not persist")

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Units)
}

func TestStoreUpdateMergesPatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore([]Bet{{ID: "a", League: "TT Elite", Units: 1}}, nil)

	units := 2.0
	odds := "+150"
	require.NoError(t, s.Update(ctx, "a", Patch{Units: &units, Odds: &odds}))

	got, _ := s.Get("a")
	assert.Equal(t, 2.0, got.Units)
	assert.Equal(t, "+150", got.Odds)
	assert.Equal(t, "TT Elite", got.League, "unpatched fields stay intact")
}

func TestStorePatchClearsOverride(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore([]Bet{{ID: "a", ScheduleOverride: &at}}, nil)

	require.NoError(t, s.Update(ctx, "a", Patch{ClearScheduleOverride: true}))
	got, _ := s.Get("a")
	assert.Nil(t, got.ScheduleOverride)
}

func TestStoreSetResultIdempotent(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := NewStore([]Bet{{ID: "a", Result: ResultPending}}, p.persist)

	require.NoError(t, s.SetResult(ctx, "a", ResultWin))
	require.Len(t, p.writes, 1)

	// Same result again: no state change, no write.
	require.NoError(t, s.SetResult(ctx, "a", ResultWin))
	assert.Len(t, p.writes, 1)

	// Re-grading to a different result persists again.
	require.NoError(t, s.SetResult(ctx, "a", ResultLoss))
	assert.Len(t, p.writes, 2)
}

func TestStoreSetResultRejectsUnknownValue(t *testing.T) {
	s := NewStore([]Bet{{ID: "a"}}, nil)
	err := s.SetResult(context.Background(), "a", Result("MAYBE"))
	assert.Error(t, err)
}

func TestStoreMarkPostedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore([]Bet{{ID: "a", AutoPost: true}}, nil)

	changed, err := s.MarkPosted(ctx, "a")
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := s.Get("a")
	assert.True(t, got.Posted)
	assert.False(t, got.AutoPost)

	changed, err = s.MarkPosted(ctx, "a")
	require.NoError(t, err)
	assert.False(t, changed, "second transition must report unchanged")

	changed, err = s.MarkPosted(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStoreScheduleAllArmsOnlyFutureUnposted(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	s := NewStore([]Bet{
		{ID: "future", MatchTime: &future},
		{ID: "past", MatchTime: &past},
		{ID: "posted", MatchTime: &future, Posted: true},
		{ID: "no-time"},
		{ID: "already-armed", MatchTime: &future, AutoPost: true},
	}, nil)

	armed, err := s.ScheduleAll(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, armed)

	got, _ := s.Get("future")
	assert.True(t, got.AutoPost)
	got, _ = s.Get("past")
	assert.False(t, got.AutoPost)
	got, _ = s.Get("posted")
	assert.False(t, got.AutoPost)
}

func TestStoreClearAndDelete(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := NewStore([]Bet{{ID: "a"}, {ID: "b"}}, p.persist)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	require.Len(t, p.writes, 2)
	assert.Empty(t, p.writes[1], "clear persists the empty collection")
}

func TestStorePersistErrorPropagates(t *testing.T) {
	p := &recordingPersister{err: errors.New("db down")}
	s := NewStore(nil, p.persist)

	err := s.Add(context.Background(), Bet{ID: "a"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "persist bets")
}

func TestStoreListReturnsCopy(t *testing.T) {
	s := NewStore([]Bet{{ID: "a", Units: 1}}, nil)
	list := s.List()
	list[0].Units = 99

	got, _ := s.Get("a")
	assert.Equal(t, 1.0, got.Units)
}
