// Package freshness decides whether an item's publish time is recent enough
// to include in a report. The filter fails open: content the system cannot
// reason about is kept, never silently dropped.
package freshness

import "time"

const secondsPerDay = 24 * 60 * 60

// IsFresh reports whether an item published at publishedAt should be kept
// under a maxAgeDays policy evaluated at now. A zero publishedAt (absent or
// unparseable upstream) is always fresh, and maxAgeDays <= 0 disables the
// filter. Age is a real-valued quotient of elapsed seconds over a day, so a
// 23-hour-old item passes maxAgeDays=1 and a 25-hour-old one fails.
func IsFresh(publishedAt time.Time, maxAgeDays int, now time.Time) bool {
	if publishedAt.IsZero() {
		return true
	}
	if maxAgeDays <= 0 {
		return true
	}
	days := now.Sub(publishedAt).Seconds() / secondsPerDay
	return days <= float64(maxAgeDays)
}

// DaysOld returns how many days ago publishedAt was, or -1 when unknown.
// Used for debug logging of filtered items.
func DaysOld(publishedAt time.Time, now time.Time) float64 {
	if publishedAt.IsZero() {
		return -1
	}
	return now.Sub(publishedAt).Seconds() / secondsPerDay
}

// MaxAgeFor resolves the effective max age for one feed: a per-feed override
// wins when present (non-nil) and non-negative; a negative override means
// "no override, use the global default".
func MaxAgeFor(override *int, globalDefault int) int {
	if override != nil && *override >= 0 {
		return *override
	}
	return globalDefault
}
