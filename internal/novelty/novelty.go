// Package novelty decides which freshly fetched items have not been observed
// yet today, and folds every fetched item into the history store's title
// records as a side effect.
package novelty

import (
	"context"
	"fmt"
	"time"

	"github.com/trendwatch/trendwatch/internal/store"
)

// Item is one fetched entry of the current batch. Rank 0 means the source
// did not report a position (RSS items, sources without ordering).
type Item struct {
	SourceID    string
	Title       string
	URL         string
	MobileURL   string
	Rank        int
	PublishedAt time.Time // zero when the source reports no publish time
}

// Detector merges fetch batches into the store and reports new identities.
type Detector struct {
	store store.Store
}

func NewDetector(st store.Store) *Detector {
	return &Detector{store: st}
}

// DetectNew returns the set of identities in items that the store had not
// observed on the given date, and merges every item into the store:
// unseen identities get a fresh record (first_seen = last_seen = now,
// observed_count = 1); known ones get last_seen updated, observed_count
// incremented, and any unseen rank values appended in order.
//
// The merge is scoped per call: an identity appearing several times in one
// batch is merged once (with all its ranks), and a repeated call with the
// same batch and the same now leaves records unchanged instead of double
// incrementing. An empty batch returns an empty set without touching the
// store.
func (d *Detector) DetectNew(ctx context.Context, date string, now time.Time, items []Item) (map[store.Identity]bool, error) {
	newIDs := make(map[store.Identity]bool)
	if len(items) == 0 {
		return newIDs, nil
	}

	// Group the batch by identity first so one identity is merged exactly
	// once per call, with its ranks collected in batch order.
	order := make([]store.Identity, 0, len(items))
	grouped := make(map[store.Identity]Item, len(items))
	ranks := make(map[store.Identity][]int, len(items))
	for _, it := range items {
		id := store.Identity{SourceID: it.SourceID, Title: it.Title}
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
			grouped[id] = it
		}
		if it.Rank > 0 {
			ranks[id] = appendRank(ranks[id], it.Rank)
		}
	}

	for _, id := range order {
		it := grouped[id]

		rec, found, err := d.store.GetTitleRecord(ctx, date, id)
		if err != nil {
			return nil, fmt.Errorf("detect new %s/%s: %w", id.SourceID, id.Title, err)
		}

		switch {
		case !found:
			newIDs[id] = true
			rec = store.TitleRecord{
				FirstSeen:     now,
				LastSeen:      now,
				ObservedCount: 1,
				Ranks:         ranks[id],
				URL:           it.URL,
				MobileURL:     it.MobileURL,
			}
		case rec.LastSeen.Equal(now):
			// Already merged with this same clock value; repeating the call
			// must not double increment.
			continue
		default:
			rec.LastSeen = now
			rec.ObservedCount++
			for _, r := range ranks[id] {
				rec.Ranks = appendRank(rec.Ranks, r)
			}
			if rec.URL == "" {
				rec.URL = it.URL
			}
			if rec.MobileURL == "" {
				rec.MobileURL = it.MobileURL
			}
		}

		if err := d.store.PutTitleRecord(ctx, date, id, rec); err != nil {
			return nil, fmt.Errorf("persist title record %s/%s: %w", id.SourceID, id.Title, err)
		}
	}

	return newIDs, nil
}

// appendRank appends r unless already present, preserving insertion order.
func appendRank(ranks []int, r int) []int {
	for _, have := range ranks {
		if have == r {
			return ranks
		}
	}
	return append(ranks, r)
}
