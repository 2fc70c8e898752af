package keywords

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGroupsAndFilters(t *testing.T) {
	path := writeRules(t, `# comment line
AI
chip
!advertisement

EV
battery

!lottery
!horoscope
`)

	rules, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(rules.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rules.Groups))
	}

	g := rules.Groups[0]
	if !reflect.DeepEqual(g.Terms, []string{"AI", "chip"}) {
		t.Errorf("group 1 terms = %v", g.Terms)
	}
	if !reflect.DeepEqual(g.Filters, []string{"advertisement"}) {
		t.Errorf("group 1 filters = %v", g.Filters)
	}
	if g.Name != "AI chip" {
		t.Errorf("group 1 name = %q", g.Name)
	}

	if !reflect.DeepEqual(rules.GlobalFilters, []string{"lottery", "horoscope"}) {
		t.Errorf("global filters = %v", rules.GlobalFilters)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	rules, err := Load(writeRules(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules.Groups) != 0 || len(rules.GlobalFilters) != 0 {
		t.Errorf("empty file should yield empty rules, got %+v", rules)
	}
}

func TestLoadTrailingGroupWithoutBlankLine(t *testing.T) {
	rules, err := Load(writeRules(t, "AI\nchip"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules.Groups) != 1 {
		t.Fatalf("trailing group not flushed: %+v", rules)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("missing rule file should be an error")
	}
}
