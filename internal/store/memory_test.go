package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTitleRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := Identity{SourceID: "weibo", Title: "a"}
	now := time.Now()

	if _, found, err := m.GetTitleRecord(ctx, "2026-03-10", id); err != nil || found {
		t.Fatalf("expected absent record, found=%v err=%v", found, err)
	}

	rec := TitleRecord{FirstSeen: now, LastSeen: now, ObservedCount: 1, Ranks: []int{1, 4}, URL: "u"}
	if err := m.PutTitleRecord(ctx, "2026-03-10", id, rec); err != nil {
		t.Fatalf("PutTitleRecord: %v", err)
	}

	got, found, err := m.GetTitleRecord(ctx, "2026-03-10", id)
	if err != nil || !found {
		t.Fatalf("GetTitleRecord: found=%v err=%v", found, err)
	}
	if got.ObservedCount != 1 || got.URL != "u" || len(got.Ranks) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Same identity on another date is a separate record.
	if _, found, _ := m.GetTitleRecord(ctx, "2026-03-11", id); found {
		t.Error("record leaked across dates")
	}
}

func TestMemoryRanksAreNotAliased(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := Identity{SourceID: "weibo", Title: "a"}

	ranks := []int{1}
	rec := TitleRecord{ObservedCount: 1, Ranks: ranks}
	if err := m.PutTitleRecord(ctx, "2026-03-10", id, rec); err != nil {
		t.Fatal(err)
	}
	ranks[0] = 99

	got, _, _ := m.GetTitleRecord(ctx, "2026-03-10", id)
	if got.Ranks[0] != 1 {
		t.Error("stored ranks mutated through the caller's slice")
	}

	got.Ranks[0] = 77
	again, _, _ := m.GetTitleRecord(ctx, "2026-03-10", id)
	if again.Ranks[0] != 1 {
		t.Error("stored ranks mutated through a returned slice")
	}
}

func TestMemoryMarkers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	has, err := m.HasMarker(ctx, MarkerPush, "2026-03-10")
	if err != nil || has {
		t.Fatalf("fresh store should have no marker, has=%v err=%v", has, err)
	}

	if err := m.SetMarker(ctx, MarkerPush, "2026-03-10", "sent 09:30"); err != nil {
		t.Fatal(err)
	}
	if has, _ := m.HasMarker(ctx, MarkerPush, "2026-03-10"); !has {
		t.Error("marker not visible after set")
	}
	if has, _ := m.HasMarker(ctx, MarkerAIAnalysis, "2026-03-10"); has {
		t.Error("marker kinds must be independent")
	}
	if has, _ := m.HasMarker(ctx, MarkerPush, "2026-03-11"); has {
		t.Error("markers must be scoped by date")
	}

	if err := m.ClearMarker(ctx, MarkerPush, "2026-03-10"); err != nil {
		t.Fatal(err)
	}
	if has, _ := m.HasMarker(ctx, MarkerPush, "2026-03-10"); has {
		t.Error("marker survived clear")
	}

	// Clearing an absent marker is a no-op, not an error.
	if err := m.ClearMarker(ctx, MarkerPush, "2026-03-10"); err != nil {
		t.Errorf("clearing absent marker: %v", err)
	}
}

func TestMemoryCleanup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := Identity{SourceID: "weibo", Title: "a"}

	for _, date := range []string{"2026-02-01", "2026-03-01", "2026-03-10"} {
		if err := m.PutTitleRecord(ctx, date, id, TitleRecord{ObservedCount: 1}); err != nil {
			t.Fatal(err)
		}
		if err := m.SetMarker(ctx, MarkerPush, date, ""); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Cleanup(ctx, "2026-03-01"); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if _, found, _ := m.GetTitleRecord(ctx, "2026-02-01", id); found {
		t.Error("record before cutoff survived cleanup")
	}
	if _, found, _ := m.GetTitleRecord(ctx, "2026-03-01", id); !found {
		t.Error("record at cutoff should survive")
	}
	if has, _ := m.HasMarker(ctx, MarkerPush, "2026-02-01"); has {
		t.Error("marker before cutoff survived cleanup")
	}
	if has, _ := m.HasMarker(ctx, MarkerPush, "2026-03-10"); !has {
		t.Error("recent marker removed by cleanup")
	}
}
