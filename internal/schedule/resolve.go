// Package schedule contains the autonomous posting engine: the time
// resolver that turns slate time strings into absolute instants, the pure
// send-time policy, and the polling worker that delivers due bets.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timePattern matches an hour:minute token with an optional meridian
// marker, e.g. "1:45 pm", "13:45", "7:05PM".
var timePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)?`)

// ResolveMatchTime converts a free-text slate time plus a calendar date
// ("2006-01-02") into an absolute instant in the given timezone.
//
// The text is lowercased, periods are stripped ("1:45 p.m." → "1:45 pm")
// and the first hour:minute token is taken. A missing meridian marker is
// accepted as-is; out-of-range components are not rejected and normalize
// through time.Date. ok is false when no time token is found or the date
// string is malformed, so callers can keep the bet without a match instant
// instead of rejecting the batch.
func ResolveMatchTime(timeStr, dateStr string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	clean := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(timeStr), ".", ""))
	m := timePattern.FindStringSubmatch(clean)
	if m == nil {
		return time.Time{}, false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(dateStr), loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}
