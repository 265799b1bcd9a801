// Package bet holds the bet record model, the authoritative in-memory
// store for the active user's queue, and unit-based profit/loss math.
package bet

import "time"

// Result is the graded outcome of a bet. Grading is user-driven only;
// the scheduler never touches it.
type Result string

const (
	ResultPending Result = "PENDING"
	ResultWin     Result = "WIN"
	ResultLoss    Result = "LOSS"
	ResultPush    Result = "PUSH"
)

// Valid reports whether r is one of the four known outcomes.
func (r Result) Valid() bool {
	switch r {
	case ResultPending, ResultWin, ResultLoss, ResultPush:
		return true
	}
	return false
}

// Bet is one wagering proposition.
//
// MatchTime is the resolved absolute start instant (nil when the display
// time could not be parsed). ScheduleOverride, when set, replaces the
// computed send time entirely. Posted is terminal for auto-posting: once
// true the bet is never auto-sent again regardless of AutoPost.
type Bet struct {
	ID          string  `json:"id"`
	League      string  `json:"league"`
	PlayerA     string  `json:"player_a"`
	PlayerB     string  `json:"player_b"`
	DisplayTime string  `json:"display_time"` // original string from the slate image
	Type        string  `json:"type"`         // e.g. "UNDER 75.5", "SPLIT"
	Units       float64 `json:"units"`
	Odds        string  `json:"odds,omitempty"` // e.g. "-120", "+150"
	Result      Result  `json:"result"`
	Notes       string  `json:"notes,omitempty"`

	CreatedAt        time.Time  `json:"created_at"`
	MatchTime        *time.Time `json:"match_time,omitempty"`
	ScheduleOverride *time.Time `json:"schedule_override,omitempty"`

	AutoPost bool `json:"auto_post"`
	Posted   bool `json:"posted"`
}

// AutoEligible reports whether the scheduler is authorized to consider
// this bet at all.
func (b Bet) AutoEligible() bool {
	return b.AutoPost && !b.Posted
}

// Settings is the per-user configuration document. LeadTimeMinutes and
// Timezone feed the schedule policy; the rest feeds delivery and display.
type Settings struct {
	MentionString   string `json:"mention_string"`
	WebhookURL      string `json:"webhook_url"`
	RecapWebhookURL string `json:"recap_webhook_url"`
	BotName         string `json:"bot_name"`
	BotAvatarURL    string `json:"bot_avatar_url"`
	LeadTimeMinutes int    `json:"lead_time_minutes"`
	Timezone        string `json:"timezone"`
	DefaultOdds     string `json:"default_odds"`
}

// DefaultSettings returns the settings a freshly registered user starts with.
func DefaultSettings() Settings {
	return Settings{
		MentionString:   "@Chefs Plays",
		BotName:         "The Commissioner",
		LeadTimeMinutes: 15,
		Timezone:        "America/New_York",
		DefaultOdds:     "-120",
	}
}

// Location resolves the configured slate timezone, falling back to UTC on
// an unknown identifier.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LeadTime returns the configured lead time as a duration.
func (s Settings) LeadTime() time.Duration {
	if s.LeadTimeMinutes < 0 {
		return 0
	}
	return time.Duration(s.LeadTimeMinutes) * time.Minute
}
