package bet

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Summary aggregates graded bets into unit-based performance numbers.
// Pending bets are excluded everywhere.
type Summary struct {
	Finished  int     `json:"finished"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Pushes    int     `json:"pushes"`
	UnitsWon  float64 `json:"units_won"`
	UnitsLost float64 `json:"units_lost"`
	NetUnits  float64 `json:"net_units"`
	ROI       float64 `json:"roi"` // percent of units risked on finished bets
}

// LeagueLine is one league's net-unit total.
type LeagueLine struct {
	League   string  `json:"league"`
	NetUnits float64 `json:"net_units"`
}

// Record renders the W-L-P record string used in recap embeds.
func (s Summary) Record() string {
	return strconv.Itoa(s.Wins) + "-" + strconv.Itoa(s.Losses) + "-" + strconv.Itoa(s.Pushes)
}

// Profit returns the units won by a winning bet at american odds.
// Positive odds: units * odds/100. Negative odds: units * 100/|odds|.
// Unparseable odds strings contribute zero.
func Profit(units float64, odds, defaultOdds string) float64 {
	s := odds
	if s == "" {
		s = defaultOdds
	}
	if s == "" {
		s = "-120"
	}
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if err != nil || n == 0 {
		return 0
	}
	if n > 0 {
		return units * float64(n) / 100
	}
	return units * 100 / math.Abs(float64(n))
}

// Summarize computes the overall summary for a collection.
func Summarize(bets []Bet, defaultOdds string) Summary {
	var sum Summary
	var risked float64
	for _, b := range bets {
		switch b.Result {
		case ResultWin:
			sum.Wins++
			sum.UnitsWon += Profit(b.Units, b.Odds, defaultOdds)
		case ResultLoss:
			sum.Losses++
			sum.UnitsLost += b.Units
		case ResultPush:
			sum.Pushes++
		default:
			continue
		}
		sum.Finished++
		risked += b.Units
	}
	sum.NetUnits = sum.UnitsWon - sum.UnitsLost
	if risked > 0 {
		sum.ROI = sum.NetUnits / risked * 100
	}
	return sum
}

// ByLeague computes net units per league over graded bets, sorted by league
// name for stable output.
func ByLeague(bets []Bet, defaultOdds string) []LeagueLine {
	totals := map[string]float64{}
	for _, b := range bets {
		switch b.Result {
		case ResultWin:
			totals[b.League] += Profit(b.Units, b.Odds, defaultOdds)
		case ResultLoss:
			totals[b.League] -= b.Units
		case ResultPush:
			totals[b.League] += 0
		}
	}
	out := make([]LeagueLine, 0, len(totals))
	for league, net := range totals {
		out = append(out, LeagueLine{League: league, NetUnits: net})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].League < out[j].League })
	return out
}
