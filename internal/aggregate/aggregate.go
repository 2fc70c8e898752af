// Package aggregate turns an observed item set into ordered keyword
// statistics. The three reporting modes differ only in which items are
// eligible for matching; the matching algorithm itself is shared.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trendwatch/trendwatch/internal/novelty"
	"github.com/trendwatch/trendwatch/internal/store"
)

// Mode selects the eligible item set for one aggregation pass. It is a
// closed set consumed at a single dispatch point; callers never branch on
// the raw string themselves.
type Mode string

const (
	// ModeIncremental reports only items new since the previous observation.
	ModeIncremental Mode = "incremental"
	// ModeCurrent reports whatever is on the board in the latest fetch.
	ModeCurrent Mode = "current"
	// ModeDaily reports everything observed today across all fetches.
	ModeDaily Mode = "daily"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIncremental, ModeCurrent, ModeDaily:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown report mode %q: use daily, current or incremental", s)
}

// Group is one keyword rule: a title matches when it contains at least one
// term and none of the group's filter words.
type Group struct {
	Name    string
	Terms   []string
	Filters []string
}

// MatchedTitle is one title attributed to a group, with its observation
// metadata for display.
type MatchedTitle struct {
	Title         string
	SourceID      string
	SourceName    string
	Ranks         []int
	URL           string
	MobileURL     string
	FirstSeen     time.Time
	LastSeen      time.Time
	ObservedCount int
	IsNew         bool
}

// KeywordStat is the per-group aggregation result.
// Invariant: Count == len(Titles).
type KeywordStat struct {
	Group  string
	Count  int
	Titles []MatchedTitle
}

// Input carries one aggregation pass. TodayRecords is the persisted history
// for the current date (already merged by the novelty detector); Batch is
// the latest fetch. Aggregation never writes to the store.
type Input struct {
	Mode          Mode
	Batch         []novelty.Item
	TodayRecords  map[store.Identity]store.TitleRecord
	NewIDs        map[store.Identity]bool
	Groups        []Group
	GlobalFilters []string
	SourceNames   map[string]string // source id -> display name

	// SortByPositionFirst orders titles within a group by best observed
	// rank before first-seen time.
	SortByPositionFirst bool
	// MaxPerGroup caps titles kept per group; 0 means unlimited.
	MaxPerGroup int
}

// Aggregate produces the ordered keyword stats and the count of distinct
// eligible items considered (independent of match success, for the
// "N scanned, M matched" yield line). An empty eligible set is a valid
// empty result, not an error.
func Aggregate(in Input) ([]KeywordStat, int, error) {
	eligible := eligibleSet(in)
	if len(eligible) == 0 {
		return nil, 0, nil
	}

	stats := make([]KeywordStat, 0, len(in.Groups))
	for _, group := range in.Groups {
		var matched []MatchedTitle
		for _, cand := range eligible {
			if titleMatches(cand.Title, group, in.GlobalFilters) {
				matched = append(matched, cand)
			}
		}
		if len(matched) == 0 {
			continue
		}

		sortTitles(matched, in.SortByPositionFirst)
		if in.MaxPerGroup > 0 && len(matched) > in.MaxPerGroup {
			matched = matched[:in.MaxPerGroup]
		}

		stat := KeywordStat{Group: group.Name, Count: len(matched), Titles: matched}
		if stat.Group == "" {
			stat.Group = strings.Join(group.Terms, " ")
		}
		stats = append(stats, stat)
	}

	// Busiest groups first; ties keep rule-file order (the sort is stable).
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})

	return stats, len(eligible), nil
}

// eligibleSet resolves the mode to the candidate titles, annotated with
// their persisted metadata and novelty flag. This is the only place the
// mode is dispatched on.
func eligibleSet(in Input) []MatchedTitle {
	switch in.Mode {
	case ModeIncremental:
		return fromBatch(in, true)
	case ModeCurrent:
		return fromBatch(in, false)
	case ModeDaily:
		return fromRecords(in)
	default:
		return nil
	}
}

// fromBatch builds candidates from the latest fetch, optionally restricted
// to identities in the new set.
func fromBatch(in Input, newOnly bool) []MatchedTitle {
	out := make([]MatchedTitle, 0, len(in.Batch))
	seen := make(map[store.Identity]bool, len(in.Batch))
	for _, it := range in.Batch {
		id := store.Identity{SourceID: it.SourceID, Title: it.Title}
		if seen[id] {
			continue
		}
		seen[id] = true
		if newOnly && !in.NewIDs[id] {
			continue
		}

		cand := MatchedTitle{
			Title:      it.Title,
			SourceID:   it.SourceID,
			SourceName: sourceName(in.SourceNames, it.SourceID),
			URL:        it.URL,
			MobileURL:  it.MobileURL,
			IsNew:      in.NewIDs[id],
		}
		if it.Rank > 0 {
			cand.Ranks = []int{it.Rank}
		}
		if rec, ok := in.TodayRecords[id]; ok {
			cand.Ranks = rec.Ranks
			cand.FirstSeen = rec.FirstSeen
			cand.LastSeen = rec.LastSeen
			cand.ObservedCount = rec.ObservedCount
			if cand.URL == "" {
				cand.URL = rec.URL
			}
			if cand.MobileURL == "" {
				cand.MobileURL = rec.MobileURL
			}
		}
		out = append(out, cand)
	}
	return out
}

// fromRecords builds candidates from everything persisted for today.
func fromRecords(in Input) []MatchedTitle {
	out := make([]MatchedTitle, 0, len(in.TodayRecords))
	for id, rec := range in.TodayRecords {
		out = append(out, MatchedTitle{
			Title:         id.Title,
			SourceID:      id.SourceID,
			SourceName:    sourceName(in.SourceNames, id.SourceID),
			Ranks:         rec.Ranks,
			URL:           rec.URL,
			MobileURL:     rec.MobileURL,
			FirstSeen:     rec.FirstSeen,
			LastSeen:      rec.LastSeen,
			ObservedCount: rec.ObservedCount,
			IsNew:         in.NewIDs[id],
		})
	}
	return out
}

func sourceName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

// titleMatches applies one group's rules: at least one term present, no
// group filter word, no global filter word. Matching is case-insensitive
// substring containment.
func titleMatches(title string, g Group, globalFilters []string) bool {
	lower := strings.ToLower(title)

	for _, f := range globalFilters {
		if f != "" && strings.Contains(lower, strings.ToLower(f)) {
			return false
		}
	}
	for _, f := range g.Filters {
		if f != "" && strings.Contains(lower, strings.ToLower(f)) {
			return false
		}
	}
	for _, term := range g.Terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// bestRank returns the lowest (best) rank a title was observed at, or a
// sentinel when it never had one.
func bestRank(ranks []int) int {
	best := 9999
	for _, r := range ranks {
		if r > 0 && r < best {
			best = r
		}
	}
	return best
}

func sortTitles(titles []MatchedTitle, positionFirst bool) {
	sort.SliceStable(titles, func(i, j int) bool {
		a, b := titles[i], titles[j]
		if positionFirst {
			ra, rb := bestRank(a.Ranks), bestRank(b.Ranks)
			if ra != rb {
				return ra < rb
			}
		}
		if !a.FirstSeen.Equal(b.FirstSeen) {
			return a.FirstSeen.Before(b.FirstSeen)
		}
		if ra, rb := bestRank(a.Ranks), bestRank(b.Ranks); ra != rb {
			return ra < rb
		}
		return a.Title < b.Title
	})
}
