package aggregate

import "sort"

// PlatformStat re-keys matched titles by source platform instead of keyword
// group. It is a display transform: the keyword stats stay untouched.
type PlatformStat struct {
	PlatformID   string
	PlatformName string
	Count        int
	Weight       float64
	Score        float64
	Titles       []MatchedTitle
}

// ToPlatformStats redistributes the titles of the given keyword stats under
// their source platform, applying an optional per-platform weight and a
// rank-based inclusion threshold: titles whose best observed rank is worse
// than rankThreshold are dropped from this view only (they remain in the
// keyword view — the two views are deliberately independent). A platform
// missing from weights gets weight 1. rankThreshold <= 0 disables the cut.
func ToPlatformStats(stats []KeywordStat, weights map[string]float64, rankThreshold int) []PlatformStat {
	byPlatform := make(map[string]*PlatformStat)
	order := []string{}
	seen := make(map[string]map[string]bool) // platform -> title -> included

	for _, stat := range stats {
		for _, t := range stat.Titles {
			if rankThreshold > 0 {
				if best := bestRank(t.Ranks); best > rankThreshold {
					continue
				}
			}

			ps, ok := byPlatform[t.SourceID]
			if !ok {
				weight := 1.0
				if w, have := weights[t.SourceID]; have && w > 0 {
					weight = w
				}
				ps = &PlatformStat{
					PlatformID:   t.SourceID,
					PlatformName: t.SourceName,
					Weight:       weight,
				}
				byPlatform[t.SourceID] = ps
				order = append(order, t.SourceID)
				seen[t.SourceID] = make(map[string]bool)
			}

			// A title can match several keyword groups; count it once per
			// platform.
			if seen[t.SourceID][t.Title] {
				continue
			}
			seen[t.SourceID][t.Title] = true
			ps.Titles = append(ps.Titles, t)
			ps.Count++
		}
	}

	out := make([]PlatformStat, 0, len(order))
	for _, id := range order {
		ps := byPlatform[id]
		ps.Score = float64(ps.Count) * ps.Weight
		out = append(out, *ps)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
