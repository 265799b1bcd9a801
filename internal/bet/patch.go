package bet

import "time"

// Patch enumerates the legally updatable fields of a bet. ID, CreatedAt,
// Result and Posted are deliberately absent: identity and creation time are
// immutable, grading goes through Store.SetResult, and the posted flag flips
// only through Store.MarkPosted.
type Patch struct {
	League      *string  `json:"league,omitempty"`
	PlayerA     *string  `json:"player_a,omitempty"`
	PlayerB     *string  `json:"player_b,omitempty"`
	DisplayTime *string  `json:"display_time,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Units       *float64 `json:"units,omitempty"`
	Odds        *string  `json:"odds,omitempty"`
	Notes       *string  `json:"notes,omitempty"`

	MatchTime        *time.Time `json:"match_time,omitempty"`
	ScheduleOverride *time.Time `json:"schedule_override,omitempty"`
	// ClearScheduleOverride drops an existing override (a nil
	// ScheduleOverride alone means "leave as is").
	ClearScheduleOverride bool  `json:"clear_schedule_override,omitempty"`
	AutoPost              *bool `json:"auto_post,omitempty"`
}

func (p Patch) apply(b *Bet) {
	if p.League != nil {
		b.League = *p.League
	}
	if p.PlayerA != nil {
		b.PlayerA = *p.PlayerA
	}
	if p.PlayerB != nil {
		b.PlayerB = *p.PlayerB
	}
	if p.DisplayTime != nil {
		b.DisplayTime = *p.DisplayTime
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Units != nil {
		b.Units = *p.Units
	}
	if p.Odds != nil {
		b.Odds = *p.Odds
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.MatchTime != nil {
		t := *p.MatchTime
		b.MatchTime = &t
	}
	if p.ClearScheduleOverride {
		b.ScheduleOverride = nil
	} else if p.ScheduleOverride != nil {
		t := *p.ScheduleOverride
		b.ScheduleOverride = &t
	}
	if p.AutoPost != nil {
		b.AutoPost = *p.AutoPost
	}
}
