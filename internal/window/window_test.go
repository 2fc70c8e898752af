package window

import (
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-10 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"8:00", "08:00", false},
		{"08:5", "08:05", false},
		{"23:59", "23:59", false},
		{"0:0", "00:00", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
		{"12", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeTime(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeTime(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeTime(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInWindowSameDay(t *testing.T) {
	cases := []struct {
		now  string
		want bool
	}{
		{"07:59", false},
		{"08:00", true},
		{"15:30", true},
		{"22:00", true},
		{"22:01", false},
	}
	for _, c := range cases {
		got, err := InWindow(at(c.now), "08:00", "22:00")
		if err != nil {
			t.Fatalf("InWindow at %s: %v", c.now, err)
		}
		if got != c.want {
			t.Errorf("InWindow(%s, 08:00-22:00) = %v, want %v", c.now, got, c.want)
		}
	}
}

func TestInWindowCrossesMidnight(t *testing.T) {
	cases := []struct {
		now  string
		want bool
	}{
		{"21:59", false},
		{"22:00", true},
		{"23:30", true},
		{"00:00", true},
		{"01:15", true},
		{"02:00", true},
		{"02:01", false},
		{"12:00", false},
	}
	for _, c := range cases {
		got, err := InWindow(at(c.now), "22:00", "02:00")
		if err != nil {
			t.Fatalf("InWindow at %s: %v", c.now, err)
		}
		if got != c.want {
			t.Errorf("InWindow(%s, 22:00-02:00) = %v, want %v", c.now, got, c.want)
		}
	}
}

func TestGateDisabledAlwaysAllows(t *testing.T) {
	g := NewGate("push")
	allowed, reason, err := g.Check(Config{Enabled: false}, at("03:00"), nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !allowed {
		t.Errorf("disabled gate denied: %s", reason)
	}
}

func TestGateOncePerDay(t *testing.T) {
	g := NewGate("push")
	cfg := Config{Enabled: true, Start: "08:00", End: "22:00", OncePerDay: true}

	ran := false
	ranToday := func() (bool, error) { return ran, nil }

	allowed, _, err := g.Check(cfg, at("10:00"), ranToday)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !allowed {
		t.Fatal("first check inside window should allow")
	}

	ran = true
	allowed, reason, err := g.Check(cfg, at("11:00"), ranToday)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if allowed {
		t.Fatal("second check should be denied after the marker is set")
	}
	if reason != "already run today" {
		t.Errorf("unexpected reason %q", reason)
	}

	// Clearing the marker opens the gate again.
	ran = false
	allowed, _, err = g.Check(cfg, at("12:00"), ranToday)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !allowed {
		t.Fatal("check after marker reset should allow")
	}
}

func TestGateOutsideWindow(t *testing.T) {
	g := NewGate("push")
	cfg := Config{Enabled: true, Start: "08:00", End: "22:00", OncePerDay: true}

	calls := 0
	allowed, reason, err := g.Check(cfg, at("23:00"), func() (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if allowed {
		t.Fatal("check outside window should deny")
	}
	if reason == "" {
		t.Error("denial should carry a reason")
	}
	if calls != 0 {
		t.Errorf("marker consulted %d times outside the window", calls)
	}
}

func TestGateBadConfig(t *testing.T) {
	g := NewGate("push")
	_, _, err := g.Check(Config{Enabled: true, Start: "25:00", End: "22:00"}, at("10:00"), nil)
	if err == nil {
		t.Fatal("invalid start time should be an error, not a denial")
	}
}
