// Package delivery posts formatted bet alerts and recap summaries to a
// Discord-compatible webhook endpoint.
package delivery

import (
	"fmt"
	"time"

	"commissioner/internal/bet"
)

// Embed colors for the alert and recap messages.
const (
	colorAlert      = 16731469 // red-orange bet alert
	colorRecapGreen = 5763719  // profitable recap
	colorRecapRed   = 15548997 // losing recap
)

// Message is the webhook payload shape.
type Message struct {
	Username        string           `json:"username"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Content         string           `json:"content,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
	Embeds          []Embed          `json:"embeds"`
}

// AllowedMentions controls which mention classes the endpoint resolves.
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// Embed is one structured message block.
type Embed struct {
	Title  string  `json:"title"`
	Color  int     `json:"color"`
	Fields []Field `json:"fields"`
	Footer *Footer `json:"footer,omitempty"`
}

// Field is a name/value/inline triple inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Footer is the small print under an embed.
type Footer struct {
	Text string `json:"text"`
}

// BetAlert builds the alert payload for one bet. Odds fall back to the
// configured default when the bet carries none.
func BetAlert(b bet.Bet, s bet.Settings) Message {
	odds := b.Odds
	if odds == "" {
		odds = s.DefaultOdds
	}
	return Message{
		Username:        botName(s),
		AvatarURL:       s.BotAvatarURL,
		Content:         s.MentionString,
		AllowedMentions: &AllowedMentions{Parse: []string{"users", "roles"}},
		Embeds: []Embed{{
			Title: "📢 Bet Alert",
			Color: colorAlert,
			Fields: []Field{
				{Name: "Match", Value: fmt.Sprintf("%s vs %s", b.PlayerA, b.PlayerB)},
				{Name: "Type", Value: b.Type, Inline: true},
				{Name: "Units", Value: fmt.Sprintf("%gu (%s)", b.Units, odds), Inline: true},
				{Name: "League", Value: b.League, Inline: true},
				{Name: "Start Time", Value: fmt.Sprintf("%s %s", b.DisplayTime, tzAbbrev(s))},
			},
		}},
	}
}

// Recap builds the end-of-period summary payload. Green when net units are
// non-negative, red otherwise.
func Recap(sum bet.Summary, s bet.Settings, now time.Time) Message {
	color := colorRecapGreen
	if sum.NetUnits < 0 {
		color = colorRecapRed
	}
	return Message{
		Username:  botName(s),
		AvatarURL: s.BotAvatarURL,
		Embeds: []Embed{{
			Title: fmt.Sprintf("📅 Daily Recap - %s", now.In(s.Location()).Format("1/2/2006")),
			Color: color,
			Fields: []Field{
				{Name: "Record", Value: sum.Record(), Inline: true},
				{Name: "Net Units", Value: formatSignedUnits(sum.NetUnits), Inline: true},
				{Name: "Total ROI", Value: fmt.Sprintf("%.1f%%", sum.ROI), Inline: true},
			},
			Footer: &Footer{Text: botName(s) + " • Auto-Generated"},
		}},
	}
}

func botName(s bet.Settings) string {
	if s.BotName != "" {
		return s.BotName
	}
	return "The Commissioner"
}

func formatSignedUnits(net float64) string {
	if net > 0 {
		return fmt.Sprintf("+%.2fu", net)
	}
	return fmt.Sprintf("%.2fu", net)
}

// tzAbbrev renders the slate timezone's current abbreviation ("EST",
// "EDT", ...) for the start-time field.
func tzAbbrev(s bet.Settings) string {
	return time.Now().In(s.Location()).Format("MST")
}
