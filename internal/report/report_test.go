package report

import (
	"strings"
	"testing"

	"github.com/trendwatch/trendwatch/internal/aggregate"
)

func sampleStats() []aggregate.KeywordStat {
	return []aggregate.KeywordStat{
		{
			Group: "ai",
			Count: 2,
			Titles: []aggregate.MatchedTitle{
				{Title: "AI <chip> launch", SourceID: "weibo", SourceName: "Weibo", Ranks: []int{3, 1}, URL: "https://example.org/1", ObservedCount: 4, IsNew: false},
				{Title: "AI lab opens", SourceID: "zhihu", SourceName: "Zhihu", IsNew: true},
			},
		},
	}
}

func sampleMeta() Meta {
	return Meta{
		Date:         "2026-03-10",
		Time:         "09:30",
		Mode:         aggregate.ModeDaily,
		TotalScanned: 50,
		TotalMatched: 2,
	}
}

func TestKeywordReport(t *testing.T) {
	out := Keyword(sampleStats(), sampleMeta())

	if !strings.Contains(out, "Scanned 50 items, matched 2") {
		t.Error("yield line missing")
	}
	if !strings.Contains(out, "AI &lt;chip&gt; launch") {
		t.Error("title not HTML-escaped")
	}
	if !strings.Contains(out, "#1-3") {
		t.Error("rank span missing")
	}
	if !strings.Contains(out, "×4") {
		t.Error("observation count missing")
	}
	if !strings.Contains(out, "🆕") {
		t.Error("new marker missing")
	}
	if strings.Count(out, "🆕") != 1 {
		t.Error("new marker applied to non-new titles")
	}
}

func TestKeywordReportEmpty(t *testing.T) {
	out := Keyword(nil, sampleMeta())
	if !strings.Contains(out, "No keyword matches") {
		t.Error("empty report should say so instead of being blank")
	}
}

func TestKeywordReportFailureHint(t *testing.T) {
	meta := sampleMeta()
	meta.FailedHint = "2 source(s) unavailable this round"
	out := Keyword(sampleStats(), meta)
	if !strings.Contains(out, "2 source(s) unavailable") {
		t.Error("failure hint missing from report")
	}
}

func TestPlatformReport(t *testing.T) {
	stats := aggregate.ToPlatformStats(sampleStats(), map[string]float64{"weibo": 2}, 0)
	out := Platform(stats, sampleMeta())
	if !strings.Contains(out, "Platform report") {
		t.Error("platform header missing")
	}
	if !strings.Contains(out, "score") {
		t.Error("score line missing")
	}
}
