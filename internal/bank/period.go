package bank

import (
	"strings"
	"time"
)

// PeriodRange maps a loosely-phrased time period ("this month", "last 6
// months", "this_year") to a concrete [since, until] window ending at now.
// Unrecognized input falls back to the current month.
func PeriodRange(period string, now time.Time) (time.Time, time.Time) {
	p := strings.ToLower(strings.ReplaceAll(period, "_", " "))
	switch {
	case strings.Contains(p, "last 6 months"):
		return now.AddDate(0, -6, 0), now
	case strings.Contains(p, "last 12 months"), strings.Contains(p, "last year"):
		return now.AddDate(-1, 0, 0), now
	case strings.Contains(p, "last 30 days"):
		return now.AddDate(0, 0, -30), now
	case strings.Contains(p, "last 3 months"), strings.Contains(p, "last quarter"):
		return now.AddDate(0, -3, 0), now
	case strings.Contains(p, "this year"):
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), now
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	}
}
