package sources

import (
	"fmt"
	"strings"
	"time"
)

// The upstreams disagree on timestamp formats: some send offsets, some send a
// trailing Z, some send naive timestamps that are documented to be UTC, and
// the NESO datastore splits date and clock into two columns. Everything is
// normalized to UTC here so the rest of the code never touches a format
// string.
var timestampFormats = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
	"02-Jan-2006",
}

// parseTimestamp parses any of the upstream timestamp shapes and returns the
// instant in UTC. Naive timestamps are taken as UTC, matching the upstream
// documentation.
func parseTimestamp(s string) (time.Time, error) {
	s = normalizeMonthCase(strings.TrimSpace(s))
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// normalizeMonthCase rewrites 01-MAR-2024 style dates so the month name
// matches Go's Jan token, which is case sensitive.
func normalizeMonthCase(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[1]) != 3 {
		return s
	}
	for _, r := range parts[1] {
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			return s
		}
	}
	parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
	return strings.Join(parts, "-")
}

// parseDateClock combines a date column and a separate HH:MM clock column
// into one UTC instant. The date column may itself be a full timestamp whose
// clock portion is ignored.
func parseDateClock(date, clock string) (time.Time, error) {
	d, err := parseTimestamp(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized clock %q", clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC), nil
}

// nearestHalfHour rounds up to the next half-hour boundary, staying put when
// already on one. Half-hourly series are keyed on these boundaries.
func nearestHalfHour(now time.Time) time.Time {
	now = now.UTC().Truncate(time.Second)
	rounded := now.Truncate(30 * time.Minute)
	if rounded.Before(now) {
		rounded = rounded.Add(30 * time.Minute)
	}
	return rounded
}

// settlementPeriod returns the UK settlement date and 1-based half-hour
// settlement period containing now.
func settlementPeriod(now time.Time) (time.Time, int) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	period := int(now.Sub(day)/(30*time.Minute)) + 1
	return day, period
}

// settlementPeriodStart converts a settlement date plus 1-based period back
// into the half-hour start instant.
func settlementPeriodStart(date time.Time, period int) time.Time {
	return date.Add(time.Duration(period-1) * 30 * time.Minute)
}
