// Package clock supplies the current time in the configured time zone.
// Every date-sensitive decision in the pipeline (novelty merging, daily
// aggregation, push markers) goes through one Clock so a run behaves the
// same regardless of the host's local zone.
package clock

import (
	"log/slog"
	"time"
)

// DefaultTimezone is the fallback when the configured zone cannot be loaded.
const DefaultTimezone = "Asia/Shanghai"

type Clock struct {
	loc *time.Location

	// nowFunc is overridable in tests.
	nowFunc func() time.Time
}

// New returns a Clock for the given IANA zone name. An unknown zone falls
// back to DefaultTimezone with a logged warning rather than failing the run.
func New(timezone string) *Clock {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("unknown timezone, using default", "timezone", timezone, "default", DefaultTimezone)
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	return &Clock{loc: loc, nowFunc: time.Now}
}

// Fixed returns a Clock that always reports t; used by tests.
func Fixed(t time.Time) *Clock {
	return &Clock{loc: t.Location(), nowFunc: func() time.Time { return t }}
}

func (c *Clock) Now() time.Time {
	return c.nowFunc().In(c.loc)
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// DateString formats the current date as YYYY-MM-DD in the configured zone.
func (c *Clock) DateString() string {
	return c.Now().Format("2006-01-02")
}

// TimeDisplay formats the current clock time as HH:MM.
func (c *Clock) TimeDisplay() string {
	return c.Now().Format("15:04")
}
