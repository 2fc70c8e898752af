// Package rss fetches configured feeds and converts their entries into
// observation items. RSS items are unranked; only hot-list snapshots carry
// positions.
package rss

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/trendwatch/trendwatch/internal/config"
	"github.com/trendwatch/trendwatch/internal/freshness"
	"github.com/trendwatch/trendwatch/internal/novelty"
)

type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	log     *slog.Logger
}

func NewFetcher(timeout time.Duration, log *slog.Logger) *Fetcher {
	p := gofeed.NewParser()
	p.UserAgent = "trendwatch/1.0"
	return &Fetcher{parser: p, timeout: timeout, log: log}
}

// Feed fetches one feed and applies the freshness policy. maxAgeDays is the
// already-resolved limit for this feed; 0 disables the age cut. Entries
// without a usable publish time are kept.
func (f *Fetcher) Feed(ctx context.Context, feed config.Feed, maxAgeDays int, now time.Time) ([]novelty.Item, error) {
	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(feed.URL, fctx)
	if err != nil {
		return nil, err
	}

	items := make([]novelty.Item, 0, len(parsed.Items))
	dropped := 0
	for _, entry := range parsed.Items {
		if entry.Title == "" {
			continue
		}
		published := publishTime(entry)
		if !freshness.IsFresh(published, maxAgeDays, now) {
			dropped++
			if f.log.Enabled(ctx, slog.LevelDebug) {
				f.log.Debug("stale entry dropped",
					"feed", feed.ID, "title", entry.Title,
					"age_days", freshness.DaysOld(published, now))
			}
			continue
		}
		items = append(items, novelty.Item{
			SourceID:    feed.ID,
			Title:       entry.Title,
			URL:         entry.Link,
			PublishedAt: published,
		})
		if feed.MaxItems > 0 && len(items) >= feed.MaxItems {
			break
		}
	}

	if dropped > 0 {
		f.log.Info("freshness filter applied", "feed", feed.ID, "kept", len(items), "dropped", dropped)
	}
	return items, nil
}

// All fetches every enabled feed, resolving the per-feed age override
// against the global default. A failing feed is logged and skipped.
func (f *Fetcher) All(ctx context.Context, cfg *config.Config, now time.Time) []novelty.Item {
	if !cfg.RSS.Enabled {
		return nil
	}

	globalMax := 0
	if cfg.RSS.Freshness.Enabled {
		globalMax = cfg.RSS.Freshness.MaxAgeDays
	}

	var all []novelty.Item
	ok := 0
	for _, feed := range cfg.RSS.Feeds {
		if !feed.IsEnabled() {
			continue
		}
		maxAge := freshness.MaxAgeFor(feed.MaxAgeDays, globalMax)
		items, err := f.Feed(ctx, feed, maxAge, now)
		if err != nil {
			f.log.Error("feed fetch failed", "feed", feed.ID, "url", feed.URL, "error", err)
			continue
		}
		f.log.Info("feed fetched", "feed", feed.ID, "items", len(items))
		all = append(all, items...)
		ok++
	}
	f.log.Info("rss round finished", "ok", ok, "total_items", len(all))
	return all
}

// publishTime prefers the published timestamp, falling back to updated.
func publishTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}
