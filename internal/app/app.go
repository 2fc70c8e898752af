// Package app wires the pipeline together: fetch, novelty detection,
// aggregation, gated push and gated AI analysis.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trendwatch/trendwatch/internal/aggregate"
	"github.com/trendwatch/trendwatch/internal/ai"
	"github.com/trendwatch/trendwatch/internal/clock"
	"github.com/trendwatch/trendwatch/internal/config"
	"github.com/trendwatch/trendwatch/internal/fetch"
	"github.com/trendwatch/trendwatch/internal/keywords"
	"github.com/trendwatch/trendwatch/internal/metrics"
	"github.com/trendwatch/trendwatch/internal/notify"
	"github.com/trendwatch/trendwatch/internal/novelty"
	"github.com/trendwatch/trendwatch/internal/report"
	"github.com/trendwatch/trendwatch/internal/rss"
	"github.com/trendwatch/trendwatch/internal/store"
	"github.com/trendwatch/trendwatch/internal/window"
)

type App struct {
	cfg      *config.Config
	log      *slog.Logger
	clk      *clock.Clock
	store    store.Store
	detector *novelty.Detector
	fetcher  *fetch.Client
	feeds    *rss.Fetcher
	rules    keywords.Rules
	pushGate *window.Gate
	aiGate   *window.Gate
	notifier *notify.Dispatcher
}

// New assembles the application from configuration. The store backend, the
// notification channels and the keyword rules are all resolved here.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	st, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	rules, err := keywords.Load(cfg.Keywords.File)
	if err != nil {
		st.Close()
		return nil, err
	}
	log.Info("keyword rules loaded",
		"file", cfg.Keywords.File,
		"groups", len(rules.Groups),
		"global_filters", len(rules.GlobalFilters))

	var channels []notify.Channel
	if cfg.Notify.Enabled {
		if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
			channels = append(channels, notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
		}
		if cfg.Notify.WebhookURL != "" {
			channels = append(channels, notify.NewWebhook(cfg.Notify.WebhookURL))
		}
	}

	return &App{
		cfg:      cfg,
		log:      log,
		clk:      clock.New(cfg.App.Timezone),
		store:    st,
		detector: novelty.NewDetector(st),
		fetcher:  fetch.New(log, fetch.WithInterval(cfg.RequestInterval())),
		feeds:    rss.NewFetcher(cfg.RSSTimeout(), log),
		rules:    rules,
		pushGate: window.NewGate("push"),
		aiGate:   window.NewGate("ai analysis"),
		notifier: notify.NewDispatcher(log, channels...),
	}, nil
}

func openStore(cfg *config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "remote":
		return store.NewPostgres(cfg.Storage.DSN)
	case "memory":
		log.Warn("using in-memory store, history is lost on exit")
		return store.NewMemory(), nil
	default:
		return store.NewSQLite(cfg.Storage.Path)
	}
}

func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("store close failed", "error", err)
	}
}

// RunOptions adjusts one pass. Force flags skip the window gates but still
// record the once-per-day marker on success.
type RunOptions struct {
	ForcePush bool
	ForceAI   bool
}

// Run executes one observation pass.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	started := time.Now()
	now := a.clk.Now()
	date := a.clk.DateString()

	batch, failedHint, err := a.collect(ctx, now)
	if err != nil {
		return err
	}
	metrics.Global.AddItemsFetched(len(batch))

	newIDs, err := a.detector.DetectNew(ctx, date, now, batch)
	if err != nil {
		return err
	}
	metrics.Global.AddNewTitles(len(newIDs))
	a.log.Info("novelty detected", "batch", len(batch), "new", len(newIDs))

	records, err := a.store.RecordsForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load today's records: %w", err)
	}

	stats, scanned, err := a.aggregateWith(a.cfg.ReportModeValue(), batch, records, newIDs)
	if err != nil {
		return err
	}

	meta := report.Meta{
		Date:         date,
		Time:         a.clk.TimeDisplay(),
		Mode:         a.cfg.ReportModeValue(),
		TotalScanned: scanned,
		TotalMatched: totalMatched(stats),
		FailedHint:   failedHint,
	}

	if err := a.maybePush(ctx, now, date, stats, meta, opts.ForcePush); err != nil {
		a.log.Error("push step failed", "error", err)
		metrics.Global.SetError(err.Error())
	}

	if err := a.maybeAnalyze(ctx, now, date, batch, records, newIDs, opts.ForceAI); err != nil {
		a.log.Error("ai step failed", "error", err)
		metrics.Global.SetError(err.Error())
	}

	if a.cfg.Storage.RetentionDays > 0 {
		before := now.AddDate(0, 0, -a.cfg.Storage.RetentionDays).Format("2006-01-02")
		if err := a.store.Cleanup(ctx, before); err != nil {
			a.log.Warn("history cleanup failed", "before", before, "error", err)
		}
	}

	metrics.Global.SetLastRun()
	metrics.Global.RecordRunDuration(time.Since(started))
	a.log.Info("pass finished", "duration", time.Since(started), "scanned", scanned, "matched", meta.TotalMatched)
	return nil
}

// collect gathers the current batch from hot lists and feeds.
func (a *App) collect(ctx context.Context, now time.Time) ([]novelty.Item, string, error) {
	res, err := a.fetcher.All(ctx, a.cfg.Platforms)
	if err != nil {
		return nil, "", err
	}
	for range res.Failed {
		metrics.Global.IncrementFetchFailures()
	}

	items := res.Items
	items = append(items, a.feeds.All(ctx, a.cfg, now)...)

	if len(items) == 0 && len(res.Failed) > 0 {
		return nil, "", fmt.Errorf("no items fetched, %d platforms failed", len(res.Failed))
	}

	hint := ""
	if len(res.Failed) > 0 {
		hint = fmt.Sprintf("%d source(s) unavailable this round", len(res.Failed))
	}
	return items, hint, nil
}

func (a *App) aggregateWith(mode aggregate.Mode, batch []novelty.Item, records map[store.Identity]store.TitleRecord, newIDs map[store.Identity]bool) ([]aggregate.KeywordStat, int, error) {
	return aggregate.Aggregate(aggregate.Input{
		Mode:                mode,
		Batch:               batch,
		TodayRecords:        records,
		NewIDs:              newIDs,
		Groups:              a.rules.Groups,
		GlobalFilters:       a.rules.GlobalFilters,
		SourceNames:         a.cfg.SourceNames(),
		SortByPositionFirst: a.cfg.App.SortByPositionFirst,
		MaxPerGroup:         a.cfg.App.MaxNewsPerKeyword,
	})
}

// maybePush sends the report when the push gate allows it. The marker is
// recorded only after the dispatch succeeds.
func (a *App) maybePush(ctx context.Context, now time.Time, date string, stats []aggregate.KeywordStat, meta report.Meta, force bool) error {
	if !a.notifier.HasChannels() {
		a.log.Debug("push skipped, no channels configured")
		return nil
	}

	if !force {
		allowed, reason, err := a.pushGate.Check(a.cfg.PushWindow.Gate(), now, a.ranToday(ctx, store.MarkerPush, date))
		if err != nil {
			return err
		}
		if !allowed {
			a.log.Info("push skipped", "reason", reason)
			return nil
		}
	}

	text := a.renderReport(stats, meta)
	if err := a.notifier.SendAll(ctx, text); err != nil {
		return err
	}
	metrics.Global.IncrementReportsPushed()

	if err := a.store.SetMarker(ctx, store.MarkerPush, date, "sent "+meta.Time); err != nil {
		return fmt.Errorf("record push marker: %w", err)
	}
	return nil
}

func (a *App) renderReport(stats []aggregate.KeywordStat, meta report.Meta) string {
	if a.cfg.App.DisplayMode == "platform" {
		platformStats := aggregate.ToPlatformStats(stats, a.cfg.PlatformWeights(), a.cfg.App.RankThreshold)
		return report.Platform(platformStats, meta)
	}
	return report.Keyword(stats, meta)
}

// maybeAnalyze runs the AI analysis when enabled and its gate allows it.
// The analysis can aggregate in its own mode, so it re-runs the engine.
func (a *App) maybeAnalyze(ctx context.Context, now time.Time, date string, batch []novelty.Item, records map[store.Identity]store.TitleRecord, newIDs map[store.Identity]bool, force bool) error {
	if !a.cfg.AIAnalysis.Enabled {
		return nil
	}

	if !force {
		allowed, reason, err := a.aiGate.Check(a.cfg.AIAnalysis.Window.Gate(), now, a.ranToday(ctx, store.MarkerAIAnalysis, date))
		if err != nil {
			return err
		}
		if !allowed {
			a.log.Info("ai analysis skipped", "reason", reason)
			return nil
		}
	}

	stats, _, err := a.aggregateWith(a.cfg.AIMode(), batch, records, newIDs)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		a.log.Info("ai analysis skipped, no keyword matches")
		return nil
	}

	analyzer, err := ai.NewAnalyzer(ctx, a.cfg.AIAnalysis.APIKey, a.cfg.AIAnalysis.Model)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	analysis, err := analyzer.Analyze(ctx, date, stats)
	if err != nil {
		return err
	}
	metrics.Global.IncrementAIAnalyses()

	if a.notifier.HasChannels() {
		text := report.Analysis(analysis, report.Meta{Date: date})
		if err := a.notifier.SendAll(ctx, text); err != nil {
			return err
		}
	} else {
		a.log.Info("ai analysis ready", "summary", analysis.Summary)
	}

	if err := a.store.SetMarker(ctx, store.MarkerAIAnalysis, date, "analyzed "+a.clk.TimeDisplay()); err != nil {
		return fmt.Errorf("record ai marker: %w", err)
	}
	return nil
}

func (a *App) ranToday(ctx context.Context, kind store.MarkerKind, date string) func() (bool, error) {
	return func() (bool, error) {
		return a.store.HasMarker(ctx, kind, date)
	}
}

// PushStatus reports the push gate's introspection view.
func (a *App) PushStatus(ctx context.Context) (window.Status, error) {
	return a.pushGate.GetStatus(a.cfg.PushWindow.Gate(), a.clk.Now(), a.ranToday(ctx, store.MarkerPush, a.clk.DateString()))
}

// AIStatus reports the AI gate's introspection view.
func (a *App) AIStatus(ctx context.Context) (window.Status, error) {
	return a.aiGate.GetStatus(a.cfg.AIAnalysis.Window.Gate(), a.clk.Now(), a.ranToday(ctx, store.MarkerAIAnalysis, a.clk.DateString()))
}

// ResetMarker clears today's marker so the action may run again.
func (a *App) ResetMarker(ctx context.Context, kind store.MarkerKind) error {
	date := a.clk.DateString()
	if err := a.store.ClearMarker(ctx, kind, date); err != nil {
		return fmt.Errorf("clear %s marker for %s: %w", kind, date, err)
	}
	a.log.Info("marker cleared", "kind", kind, "date", date)
	return nil
}

func totalMatched(stats []aggregate.KeywordStat) int {
	total := 0
	for _, s := range stats {
		total += s.Count
	}
	return total
}
