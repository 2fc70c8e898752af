package freshness

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestIsFreshBoundary(t *testing.T) {
	// Exactly maxAge days old still passes; one second past fails.
	exact := now.Add(-24 * time.Hour)
	if !IsFresh(exact, 1, now) {
		t.Error("item exactly 1 day old should pass max_age_days=1")
	}
	past := now.Add(-24*time.Hour - time.Second)
	if IsFresh(past, 1, now) {
		t.Error("item 1 day and 1 second old should fail max_age_days=1")
	}
}

func TestIsFreshFractionalDays(t *testing.T) {
	if !IsFresh(now.Add(-23*time.Hour), 1, now) {
		t.Error("23-hour-old item should pass max_age_days=1")
	}
	if IsFresh(now.Add(-25*time.Hour), 1, now) {
		t.Error("25-hour-old item should fail max_age_days=1")
	}
}

func TestIsFreshFailsOpen(t *testing.T) {
	if !IsFresh(time.Time{}, 1, now) {
		t.Error("item without a publish time should be kept")
	}
	if !IsFresh(now.Add(-1000*time.Hour), 0, now) {
		t.Error("max_age_days=0 should disable the filter")
	}
	if !IsFresh(now.Add(-1000*time.Hour), -5, now) {
		t.Error("negative max_age_days should disable the filter")
	}
}

func TestDaysOld(t *testing.T) {
	if got := DaysOld(time.Time{}, now); got != -1 {
		t.Errorf("DaysOld(zero) = %v, want -1", got)
	}
	got := DaysOld(now.Add(-36*time.Hour), now)
	if got < 1.49 || got > 1.51 {
		t.Errorf("DaysOld(36h) = %v, want 1.5", got)
	}
}

func TestMaxAgeFor(t *testing.T) {
	override := func(v int) *int { return &v }

	if got := MaxAgeFor(nil, 3); got != 3 {
		t.Errorf("no override: got %d, want 3", got)
	}
	if got := MaxAgeFor(override(1), 3); got != 1 {
		t.Errorf("override 1: got %d, want 1", got)
	}
	if got := MaxAgeFor(override(0), 3); got != 0 {
		t.Errorf("override 0 disables the filter: got %d, want 0", got)
	}
	if got := MaxAgeFor(override(-1), 3); got != 3 {
		t.Errorf("negative override falls back: got %d, want 3", got)
	}
}
