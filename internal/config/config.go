// Package config loads the YAML configuration file and applies environment
// overrides. Secrets (tokens, API keys, database DSN) come from the
// environment only, never from the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trendwatch/trendwatch/internal/aggregate"
	"github.com/trendwatch/trendwatch/internal/window"
)

// Error is a configuration failure with an actionable suggestion.
type Error struct {
	Field      string
	Msg        string
	Suggestion string
}

func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("config %s: %s (%s)", e.Field, e.Msg, e.Suggestion)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

// Platform is one monitored ranked hot-list source.
type Platform struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Weight  float64 `yaml:"weight"`   // platform-view weight, 0 = default 1.0
	PageURL string  `yaml:"page_url"` // optional HTML page used as scrape fallback
	Enabled *bool   `yaml:"enabled"`  // nil = enabled
}

func (p Platform) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Feed is one RSS source. MaxAgeDays overrides the global freshness default
// when set and non-negative; a negative value falls back to the default.
type Feed struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	MaxItems   int    `yaml:"max_items"`
	Enabled    *bool  `yaml:"enabled"`
	MaxAgeDays *int   `yaml:"max_age_days"`
}

func (f Feed) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Window mirrors window.Config in YAML form.
type Window struct {
	Enabled    bool   `yaml:"enabled"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
	OncePerDay bool   `yaml:"once_per_day"`
}

func (w Window) Gate() window.Config {
	return window.Config{Enabled: w.Enabled, Start: w.Start, End: w.End, OncePerDay: w.OncePerDay}
}

type Config struct {
	App struct {
		Timezone            string `yaml:"timezone"`
		ReportMode          string `yaml:"report_mode"`  // daily | current | incremental
		DisplayMode         string `yaml:"display_mode"` // keyword | platform
		RankThreshold       int    `yaml:"rank_threshold"`
		MaxNewsPerKeyword   int    `yaml:"max_news_per_keyword"`
		SortByPositionFirst bool   `yaml:"sort_by_position_first"`
		RequestIntervalMS   int    `yaml:"request_interval_ms"`
		Debug               bool   `yaml:"debug"`
	} `yaml:"app"`

	Platforms []Platform `yaml:"platforms"`

	Keywords struct {
		File string `yaml:"file"`
	} `yaml:"keywords"`

	RSS struct {
		Enabled   bool   `yaml:"enabled"`
		Feeds     []Feed `yaml:"feeds"`
		Freshness struct {
			Enabled    bool `yaml:"enabled"`
			MaxAgeDays int  `yaml:"max_age_days"`
		} `yaml:"freshness"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"rss"`

	Storage struct {
		Backend       string `yaml:"backend"` // local | remote | memory
		Path          string `yaml:"path"`    // sqlite file for the local backend
		RetentionDays int    `yaml:"retention_days"`
		DSN           string `yaml:"-"` // from DATABASE_URL only
	} `yaml:"storage"`

	PushWindow Window `yaml:"push_window"`

	AIAnalysis struct {
		Enabled bool   `yaml:"enabled"`
		Mode    string `yaml:"mode"` // follow_report | daily | current | incremental
		Model   string `yaml:"model"`
		Window  Window `yaml:"window"`
		APIKey  string `yaml:"-"` // from GEMINI_API_KEY only
	} `yaml:"ai_analysis"`

	Notify struct {
		Enabled        bool   `yaml:"enabled"`
		WebhookURL     string `yaml:"webhook_url"`
		TelegramToken  string `yaml:"-"` // from TELEGRAM_TOKEN only
		TelegramChatID string `yaml:"-"` // from TELEGRAM_CHAT_ID only
	} `yaml:"notify"`
}

// Load reads the YAML file at path, fills defaults, applies environment
// overrides and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "file", Msg: err.Error(), Suggestion: "create " + path + " or pass -config"}
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Field: "file", Msg: "invalid YAML: " + err.Error(), Suggestion: "check indentation in " + path}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Timezone = "Asia/Shanghai"
	cfg.App.ReportMode = string(aggregate.ModeDaily)
	cfg.App.DisplayMode = "keyword"
	cfg.App.RequestIntervalMS = 1000
	cfg.Keywords.File = "configs/frequency_words.txt"
	cfg.RSS.Freshness.Enabled = true
	cfg.RSS.Freshness.MaxAgeDays = 3
	cfg.RSS.TimeoutSeconds = 15
	cfg.Storage.Backend = "local"
	cfg.Storage.Path = "data/trendwatch.db"
	cfg.Storage.RetentionDays = 30
	cfg.AIAnalysis.Mode = "follow_report"
	cfg.AIAnalysis.Model = "gemini-1.5-flash"
	return cfg
}

func (c *Config) applyEnv() {
	c.Notify.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	c.Notify.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	c.AIAnalysis.APIKey = os.Getenv("GEMINI_API_KEY")
	c.Storage.DSN = os.Getenv("DATABASE_URL")

	c.Storage.Backend = getEnvOrDefault("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.RetentionDays = getEnvIntOrDefault("STORAGE_RETENTION_DAYS", c.Storage.RetentionDays)
	c.App.ReportMode = getEnvOrDefault("REPORT_MODE", c.App.ReportMode)

	if os.Getenv("DEBUG") == "true" {
		c.App.Debug = true
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue >= 0 {
			return intValue
		}
	}
	return defaultValue
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, err := aggregate.ParseMode(c.App.ReportMode); err != nil {
		return &Error{Field: "app.report_mode", Msg: err.Error(), Suggestion: "use daily, current or incremental"}
	}
	if c.App.DisplayMode != "keyword" && c.App.DisplayMode != "platform" {
		return &Error{Field: "app.display_mode", Msg: fmt.Sprintf("unknown display mode %q", c.App.DisplayMode), Suggestion: "use keyword or platform"}
	}

	switch c.Storage.Backend {
	case "local", "memory":
	case "remote":
		if c.Storage.DSN == "" {
			return &Error{Field: "storage", Msg: "remote backend selected but DATABASE_URL is not set", Suggestion: "export DATABASE_URL or switch storage.backend to local"}
		}
	default:
		return &Error{Field: "storage.backend", Msg: fmt.Sprintf("unknown backend %q", c.Storage.Backend), Suggestion: "use local, remote or memory"}
	}

	if err := validateWindow("push_window", c.PushWindow); err != nil {
		return err
	}
	if err := validateWindow("ai_analysis.window", c.AIAnalysis.Window); err != nil {
		return err
	}

	switch c.AIAnalysis.Mode {
	case "follow_report", string(aggregate.ModeDaily), string(aggregate.ModeCurrent), string(aggregate.ModeIncremental):
	default:
		return &Error{Field: "ai_analysis.mode", Msg: fmt.Sprintf("unknown mode %q", c.AIAnalysis.Mode), Suggestion: "use follow_report, daily, current or incremental"}
	}
	if c.AIAnalysis.Enabled && c.AIAnalysis.APIKey == "" {
		return &Error{Field: "ai_analysis", Msg: "enabled but GEMINI_API_KEY is not set", Suggestion: "export GEMINI_API_KEY or disable ai_analysis"}
	}
	if c.Notify.Enabled && c.Notify.TelegramToken == "" && c.Notify.WebhookURL == "" {
		return &Error{Field: "notify", Msg: "enabled but no channel configured", Suggestion: "set TELEGRAM_TOKEN/TELEGRAM_CHAT_ID or notify.webhook_url"}
	}

	return nil
}

func validateWindow(field string, w Window) error {
	if !w.Enabled {
		return nil
	}
	if _, err := window.NormalizeTime(w.Start); err != nil {
		return &Error{Field: field + ".start", Msg: err.Error(), Suggestion: `use 24-hour HH:MM, e.g. "08:00"`}
	}
	if _, err := window.NormalizeTime(w.End); err != nil {
		return &Error{Field: field + ".end", Msg: err.Error(), Suggestion: `use 24-hour HH:MM, e.g. "22:00"`}
	}
	return nil
}

// ReportModeValue returns the validated report mode.
func (c *Config) ReportModeValue() aggregate.Mode {
	m, _ := aggregate.ParseMode(c.App.ReportMode)
	return m
}

// AIMode resolves follow_report to the report mode.
func (c *Config) AIMode() aggregate.Mode {
	if c.AIAnalysis.Mode == "follow_report" {
		return c.ReportModeValue()
	}
	m, _ := aggregate.ParseMode(c.AIAnalysis.Mode)
	return m
}

// RSSTimeout returns the configured RSS fetch timeout.
func (c *Config) RSSTimeout() time.Duration {
	return time.Duration(c.RSS.TimeoutSeconds) * time.Second
}

// RequestInterval returns the pacing delay between source fetches.
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(c.App.RequestIntervalMS) * time.Millisecond
}

// SourceNames maps every configured source id to its display name.
func (c *Config) SourceNames() map[string]string {
	names := make(map[string]string, len(c.Platforms)+len(c.RSS.Feeds))
	for _, p := range c.Platforms {
		names[p.ID] = p.Name
	}
	for _, f := range c.RSS.Feeds {
		names[f.ID] = f.Name
	}
	return names
}

// PlatformWeights maps platform ids to their display weights.
func (c *Config) PlatformWeights() map[string]float64 {
	weights := make(map[string]float64, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Weight > 0 {
			weights[p.ID] = p.Weight
		}
	}
	return weights
}
