// Package window implements the time-window gate that controls when guarded
// actions (notification push, AI analysis) may run. The gate only decides;
// recording the "ran today" marker is the caller's job after the action
// fully completes, so a failed action never consumes the day's single slot.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config describes one guarded action's execution window.
type Config struct {
	Enabled    bool
	Start      string // HH:MM
	End        string // HH:MM
	OncePerDay bool
}

// Status is the operator-facing view of a gate; introspection only, never
// used for control flow.
type Status struct {
	Enabled       bool   `json:"enabled"`
	CurrentTime   string `json:"current_time"`
	CurrentDate   string `json:"current_date"`
	Timezone      string `json:"timezone"`
	WindowStart   string `json:"window_start,omitempty"`
	WindowEnd     string `json:"window_end,omitempty"`
	InWindow      bool   `json:"in_window,omitempty"`
	OncePerDay    bool   `json:"once_per_day,omitempty"`
	ExecutedToday bool   `json:"executed_today,omitempty"`
}

// NormalizeTime validates an HH:MM string and returns it zero-padded.
// Zero-padded HH:MM strings sort identically to their time-of-day value,
// which is what makes the lexicographic window comparison valid.
func NormalizeTime(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid time %q: out of range", s)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// InWindow reports whether now falls inside [start, end]. start > end
// denotes a window crossing midnight (e.g. 22:00-02:00), in which case the
// window is satisfied on either side of it.
func InWindow(now time.Time, start, end string) (bool, error) {
	s, err := NormalizeTime(start)
	if err != nil {
		return false, err
	}
	e, err := NormalizeTime(end)
	if err != nil {
		return false, err
	}
	cur := now.Format("15:04")

	if s <= e {
		return s <= cur && cur <= e, nil
	}
	return cur >= s || cur <= e, nil
}

// Gate checks one window configuration against the clock and the persisted
// execution history.
type Gate struct {
	name string // for log/reason context, e.g. "push", "ai analysis"
}

func NewGate(name string) *Gate {
	return &Gate{name: name}
}

// Check decides whether the guarded action may run now. ranToday is only
// consulted when the window is enabled and OncePerDay is set. A denied
// outcome is a normal result, not an error; errors are reserved for
// malformed configuration and store failures surfaced by ranToday.
func (g *Gate) Check(cfg Config, now time.Time, ranToday func() (bool, error)) (bool, string, error) {
	if !cfg.Enabled {
		return true, "window control disabled", nil
	}

	inside, err := InWindow(now, cfg.Start, cfg.End)
	if err != nil {
		return false, "", fmt.Errorf("%s window config: %w", g.name, err)
	}
	if !inside {
		return false, fmt.Sprintf("current time %s outside window %s-%s", now.Format("15:04"), cfg.Start, cfg.End), nil
	}

	if cfg.OncePerDay && ranToday != nil {
		ran, err := ranToday()
		if err != nil {
			return false, "", fmt.Errorf("%s window: check today's marker: %w", g.name, err)
		}
		if ran {
			return false, "already run today", nil
		}
	}

	return true, "within window", nil
}

// GetStatus collects the gate's introspection view. The marker lookup error,
// if any, is returned so operators see store trouble rather than a silent
// "not executed".
func (g *Gate) GetStatus(cfg Config, now time.Time, ranToday func() (bool, error)) (Status, error) {
	st := Status{
		Enabled:     cfg.Enabled,
		CurrentTime: now.Format("15:04:05"),
		CurrentDate: now.Format("2006-01-02"),
		Timezone:    now.Location().String(),
	}
	if !cfg.Enabled {
		return st, nil
	}

	st.WindowStart = cfg.Start
	st.WindowEnd = cfg.End
	inside, err := InWindow(now, cfg.Start, cfg.End)
	if err != nil {
		return st, fmt.Errorf("%s window config: %w", g.name, err)
	}
	st.InWindow = inside
	st.OncePerDay = cfg.OncePerDay

	if cfg.OncePerDay && ranToday != nil {
		ran, err := ranToday()
		if err != nil {
			return st, fmt.Errorf("%s window: check today's marker: %w", g.name, err)
		}
		st.ExecutedToday = ran
	}
	return st, nil
}
