// Package store is the persisted history behind the pipeline: which titles
// have been observed today (and with what ranks), and which guarded actions
// already ran. Backends are interchangeable; the rest of the code only sees
// the Store interface and is selected at startup (local SQLite, remote
// Postgres, or in-memory).
package store

import (
	"context"
	"time"
)

// Identity is the de-duplication key for an item. Sources do not guarantee
// stable numeric IDs across fetches, so the title text is the key.
type Identity struct {
	SourceID string
	Title    string
}

// TitleRecord is the per-identity observation history for one calendar date.
type TitleRecord struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	ObservedCount int
	Ranks         []int // append-only, de-duplicated, insertion order
	URL           string
	MobileURL     string
}

// MarkerKind names a guarded action whose once-per-day execution is tracked.
type MarkerKind string

const (
	MarkerPush       MarkerKind = "push"
	MarkerAIAnalysis MarkerKind = "ai_analysis"
)

// Store is the history backend. Dates are YYYY-MM-DD strings in the
// configured zone. Implementations must treat a missing record/marker as a
// normal absent result, not an error.
type Store interface {
	GetTitleRecord(ctx context.Context, date string, id Identity) (TitleRecord, bool, error)
	PutTitleRecord(ctx context.Context, date string, id Identity, rec TitleRecord) error
	RecordsForDate(ctx context.Context, date string) (map[Identity]TitleRecord, error)

	HasMarker(ctx context.Context, kind MarkerKind, date string) (bool, error)
	SetMarker(ctx context.Context, kind MarkerKind, date string, note string) error
	ClearMarker(ctx context.Context, kind MarkerKind, date string) error

	// Cleanup removes records and markers older than the given date.
	Cleanup(ctx context.Context, before string) error
	Close() error
}
