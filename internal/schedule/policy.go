package schedule

import (
	"time"

	"commissioner/internal/bet"
)

// SendTime computes the instant at which a bet should be transmitted.
//
// A user-pinned override always wins. Otherwise the send time is the match
// instant minus the configured lead time. ok is false when the bet carries
// neither, meaning it is never eligible for automatic delivery.
// Pure and idempotent: same inputs, same instant.
func SendTime(b bet.Bet, s bet.Settings) (time.Time, bool) {
	if b.ScheduleOverride != nil {
		return *b.ScheduleOverride, true
	}
	if b.MatchTime != nil {
		return b.MatchTime.Add(-s.LeadTime()), true
	}
	return time.Time{}, false
}

// Due reports whether a bet's send time has arrived.
func Due(b bet.Bet, s bet.Settings, now time.Time) bool {
	at, ok := SendTime(b, s)
	return ok && !now.Before(at)
}
