package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commissioner/internal/bet"
)

func TestSendTimeLeadTime(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	b := bet.Bet{MatchTime: &match}
	s := bet.Settings{LeadTimeMinutes: 15}

	at, ok := SendTime(b, s)
	require.True(t, ok)
	assert.Equal(t, match.Add(-15*time.Minute), at)
}

func TestSendTimeOverrideWins(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	override := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := bet.Bet{MatchTime: &match, ScheduleOverride: &override}
	s := bet.Settings{LeadTimeMinutes: 15}

	at, ok := SendTime(b, s)
	require.True(t, ok)
	assert.Equal(t, override, at)
}

func TestSendTimeNoInstant(t *testing.T) {
	_, ok := SendTime(bet.Bet{}, bet.Settings{LeadTimeMinutes: 15})
	assert.False(t, ok)
}

func TestSendTimeIdempotent(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	b := bet.Bet{MatchTime: &match}
	s := bet.Settings{LeadTimeMinutes: 30}

	first, ok1 := SendTime(b, s)
	second, ok2 := SendTime(b, s)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestDue(t *testing.T) {
	match := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	b := bet.Bet{MatchTime: &match}
	s := bet.Settings{LeadTimeMinutes: 15}
	sendAt := match.Add(-15 * time.Minute)

	assert.False(t, Due(b, s, sendAt.Add(-time.Second)))
	assert.True(t, Due(b, s, sendAt))
	assert.True(t, Due(b, s, sendAt.Add(time.Hour)))
	assert.False(t, Due(bet.Bet{}, s, sendAt), "no send time is never due")
}
