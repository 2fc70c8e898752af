package novelty

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/trendwatch/trendwatch/internal/store"
)

const date = "2026-03-10"

func item(source, title string, rank int) Item {
	return Item{SourceID: source, Title: title, Rank: rank, URL: "https://example.org/" + title}
}

func TestDetectNewFirstObservation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	d := NewDetector(st)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	batch := []Item{item("weibo", "a", 1), item("weibo", "b", 2)}
	newIDs, err := d.DetectNew(ctx, date, now, batch)
	if err != nil {
		t.Fatalf("DetectNew: %v", err)
	}
	if len(newIDs) != 2 {
		t.Fatalf("expected 2 new identities, got %d", len(newIDs))
	}

	rec, found, err := st.GetTitleRecord(ctx, date, store.Identity{SourceID: "weibo", Title: "a"})
	if err != nil || !found {
		t.Fatalf("record missing after merge: found=%v err=%v", found, err)
	}
	if !rec.FirstSeen.Equal(now) || !rec.LastSeen.Equal(now) {
		t.Errorf("first observation should set first_seen = last_seen = now")
	}
	if rec.ObservedCount != 1 {
		t.Errorf("observed_count = %d, want 1", rec.ObservedCount)
	}
	if !reflect.DeepEqual(rec.Ranks, []int{1}) {
		t.Errorf("ranks = %v, want [1]", rec.Ranks)
	}
}

func TestDetectNewRepeatCallIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	d := NewDetector(st)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	batch := []Item{item("weibo", "a", 1)}

	if _, err := d.DetectNew(ctx, date, now, batch); err != nil {
		t.Fatalf("first DetectNew: %v", err)
	}
	before, _, _ := st.GetTitleRecord(ctx, date, store.Identity{SourceID: "weibo", Title: "a"})

	newIDs, err := d.DetectNew(ctx, date, now, batch)
	if err != nil {
		t.Fatalf("second DetectNew: %v", err)
	}
	if len(newIDs) != 0 {
		t.Errorf("repeat call reported %d new identities, want 0", len(newIDs))
	}

	after, _, _ := st.GetTitleRecord(ctx, date, store.Identity{SourceID: "weibo", Title: "a"})
	if !reflect.DeepEqual(before, after) {
		t.Errorf("repeat call changed the record: before=%+v after=%+v", before, after)
	}
}

func TestDetectNewSecondObservation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	d := NewDetector(st)
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(30 * time.Minute)

	if _, err := d.DetectNew(ctx, date, t1, []Item{item("weibo", "a", 3)}); err != nil {
		t.Fatalf("DetectNew: %v", err)
	}
	newIDs, err := d.DetectNew(ctx, date, t2, []Item{item("weibo", "a", 1)})
	if err != nil {
		t.Fatalf("DetectNew: %v", err)
	}
	if len(newIDs) != 0 {
		t.Errorf("already-seen identity reported as new")
	}

	rec, _, _ := st.GetTitleRecord(ctx, date, store.Identity{SourceID: "weibo", Title: "a"})
	if !rec.FirstSeen.Equal(t1) {
		t.Errorf("first_seen moved on second observation")
	}
	if !rec.LastSeen.Equal(t2) {
		t.Errorf("last_seen not updated")
	}
	if rec.ObservedCount != 2 {
		t.Errorf("observed_count = %d, want 2", rec.ObservedCount)
	}
	if !reflect.DeepEqual(rec.Ranks, []int{3, 1}) {
		t.Errorf("ranks = %v, want [3 1]", rec.Ranks)
	}
}

func TestDetectNewDuplicateInBatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	d := NewDetector(st)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Same identity twice in one batch: merged once, ranks collected.
	batch := []Item{item("weibo", "a", 2), item("weibo", "a", 5), item("weibo", "a", 2)}
	newIDs, err := d.DetectNew(ctx, date, now, batch)
	if err != nil {
		t.Fatalf("DetectNew: %v", err)
	}
	if len(newIDs) != 1 {
		t.Fatalf("expected 1 new identity, got %d", len(newIDs))
	}

	rec, _, _ := st.GetTitleRecord(ctx, date, store.Identity{SourceID: "weibo", Title: "a"})
	if rec.ObservedCount != 1 {
		t.Errorf("observed_count = %d, want 1 for a single call", rec.ObservedCount)
	}
	if !reflect.DeepEqual(rec.Ranks, []int{2, 5}) {
		t.Errorf("ranks = %v, want [2 5]", rec.Ranks)
	}
}

func TestDetectNewEmptyBatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	d := NewDetector(st)

	newIDs, err := d.DetectNew(ctx, date, time.Now(), nil)
	if err != nil {
		t.Fatalf("DetectNew: %v", err)
	}
	if len(newIDs) != 0 {
		t.Errorf("empty batch produced %d new identities", len(newIDs))
	}

	records, err := st.RecordsForDate(ctx, date)
	if err != nil {
		t.Fatalf("RecordsForDate: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("empty batch wrote %d records", len(records))
	}
}

func TestDetectNewScopedByDate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	d := NewDetector(st)
	now := time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC)

	if _, err := d.DetectNew(ctx, "2026-03-10", now.Add(-time.Hour), []Item{item("weibo", "a", 1)}); err != nil {
		t.Fatalf("DetectNew: %v", err)
	}

	// Same title on the next date counts as new again.
	newIDs, err := d.DetectNew(ctx, "2026-03-11", now, []Item{item("weibo", "a", 1)})
	if err != nil {
		t.Fatalf("DetectNew: %v", err)
	}
	if len(newIDs) != 1 {
		t.Errorf("title seen yesterday should be new today, got %d new", len(newIDs))
	}
}
