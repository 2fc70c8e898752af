// Package report renders aggregation results into the HTML-flavored text
// the notification channels accept.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/trendwatch/trendwatch/internal/aggregate"
	"github.com/trendwatch/trendwatch/internal/ai"
)

// Meta carries the run context shown in the header and the yield line.
type Meta struct {
	Date         string
	Time         string
	Mode         aggregate.Mode
	TotalScanned int    // distinct eligible items this pass
	TotalMatched int    // sum of group counts
	FailedHint   string // non-empty when some sources failed this round
}

func modeLabel(m aggregate.Mode) string {
	switch m {
	case aggregate.ModeIncremental:
		return "new since last check"
	case aggregate.ModeCurrent:
		return "currently on the boards"
	case aggregate.ModeDaily:
		return "all of today"
	}
	return string(m)
}

// Keyword renders the keyword-grouped report.
func Keyword(stats []aggregate.KeywordStat, meta Meta) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Trend report</b> %s %s\n", meta.Date, meta.Time)
	fmt.Fprintf(&b, "Scope: %s\n", modeLabel(meta.Mode))
	fmt.Fprintf(&b, "Scanned %d items, matched %d\n", meta.TotalScanned, meta.TotalMatched)
	if meta.FailedHint != "" {
		fmt.Fprintf(&b, "⚠ %s\n", meta.FailedHint)
	}
	b.WriteString("\n")

	if len(stats) == 0 {
		b.WriteString("No keyword matches this round.\n")
		return b.String()
	}

	for _, stat := range stats {
		fmt.Fprintf(&b, "<b>%s</b> (%d)\n", html.EscapeString(stat.Group), stat.Count)
		for _, t := range stat.Titles {
			writeTitleLine(&b, t)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Platform renders the platform-grouped view.
func Platform(stats []aggregate.PlatformStat, meta Meta) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Platform report</b> %s %s\n", meta.Date, meta.Time)
	fmt.Fprintf(&b, "Scope: %s\n\n", modeLabel(meta.Mode))

	if len(stats) == 0 {
		b.WriteString("No platform activity this round.\n")
		return b.String()
	}

	for _, stat := range stats {
		fmt.Fprintf(&b, "<b>%s</b> — %d titles, score %.1f\n",
			html.EscapeString(stat.PlatformName), stat.Count, stat.Score)
		for _, t := range stat.Titles {
			writeTitleLine(&b, t)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Analysis renders the AI analysis as its own message.
func Analysis(a *ai.Analysis, meta Meta) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>AI trend analysis</b> %s\n\n", meta.Date)
	if a.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", html.EscapeString(a.Summary))
	}
	if a.Trends != "" {
		fmt.Fprintf(&b, "<b>Movement</b>\n%s\n\n", html.EscapeString(a.Trends))
	}
	if a.Outlook != "" {
		fmt.Fprintf(&b, "<b>Watch next</b>\n%s\n", html.EscapeString(a.Outlook))
	}
	return b.String()
}

func writeTitleLine(b *strings.Builder, t aggregate.MatchedTitle) {
	marker := ""
	if t.IsNew {
		marker = " 🆕"
	}

	rank := ""
	if len(t.Ranks) > 0 {
		rank = fmt.Sprintf(" #%s", ranksDisplay(t.Ranks))
	}

	title := html.EscapeString(t.Title)
	if t.URL != "" {
		title = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(t.URL), title)
	}

	count := ""
	if t.ObservedCount > 1 {
		count = fmt.Sprintf(" ×%d", t.ObservedCount)
	}

	fmt.Fprintf(b, "• [%s] %s%s%s%s\n", html.EscapeString(t.SourceName), title, rank, count, marker)
}

// ranksDisplay compresses the observed rank history: single value, or
// min-max span when the title moved.
func ranksDisplay(ranks []int) string {
	min, max := ranks[0], ranks[0]
	for _, r := range ranks[1:] {
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d-%d", min, max)
}
