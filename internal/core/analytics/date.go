package analytics

import "time"

// Periods accepted by GetDateRange.
var Periods = []string{"today", "yesterday", "last_7_days", "this_month", "last_month", "last_30_days", "last_90_days"}

// GetDateRange returns the created_at range for a named period relative to
// now. Unknown periods fall back to the last 30 days.
func GetDateRange(period string, now time.Time) DateRange {
	startOfDay := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}

	var start, end time.Time
	switch period {
	case "today":
		start = startOfDay(now)
		end = now

	case "yesterday":
		end = startOfDay(now).Add(-time.Nanosecond)
		start = startOfDay(end)

	case "last_7_days":
		start = startOfDay(now.AddDate(0, 0, -6))
		end = now

	case "this_month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now

	case "last_month":
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, now.Location())

	case "last_90_days":
		start = startOfDay(now.AddDate(0, 0, -89))
		end = now

	default:
		start = startOfDay(now.AddDate(0, 0, -29))
		end = now
	}

	return DateRange{Start: start, End: end, Field: "created_at"}
}

// ValidPeriod reports whether p is a known period name.
func ValidPeriod(p string) bool {
	for _, known := range Periods {
		if p == known {
			return true
		}
	}
	return false
}
