// Package fetch pulls ranked hot-list snapshots from the aggregation API,
// falling back to scraping the platform's own page when the API has no data.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trendwatch/trendwatch/internal/config"
	"github.com/trendwatch/trendwatch/internal/novelty"
	"github.com/trendwatch/trendwatch/internal/retry"
)

// DefaultBaseURL is the hot-list aggregation endpoint.
const DefaultBaseURL = "https://newsnow.busiyi.world/api/s"

// Client fetches ranked snapshots for configured platforms.
type Client struct {
	http     *http.Client
	baseURL  string
	interval time.Duration
	retry    retry.Config
	log      *slog.Logger
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

func New(log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  DefaultBaseURL,
		interval: time.Second,
		retry:    retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the aggregation API payload for one platform.
type apiResponse struct {
	Status string `json:"status"`
	Items  []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		MobileURL string `json:"mobileUrl"`
	} `json:"items"`
}

// Platform fetches one platform's current ranking. Rank is the 1-based list
// position in the snapshot.
func (c *Client) Platform(ctx context.Context, p config.Platform) ([]novelty.Item, error) {
	var items []novelty.Item
	err := retry.Do(ctx, c.retry, func() error {
		fetched, err := c.fetchOnce(ctx, p)
		if err != nil {
			return err
		}
		items = fetched
		return nil
	})
	if err != nil && p.PageURL != "" {
		c.log.Warn("hot-list API failed, scraping page instead",
			"platform", p.ID, "error", err)
		return c.scrapePage(ctx, p)
	}
	return items, err
}

func (c *Client) fetchOnce(ctx context.Context, p config.Platform) ([]novelty.Item, error) {
	url := fmt.Sprintf("%s?id=%s&latest", c.baseURL, p.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "trendwatch/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", p.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", p.ID, err)
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("fetch %s: decode: %w", p.ID, err)
	}
	if payload.Status != "success" && payload.Status != "cache" {
		return nil, fmt.Errorf("fetch %s: upstream status %q", p.ID, payload.Status)
	}

	items := make([]novelty.Item, 0, len(payload.Items))
	for i, it := range payload.Items {
		if it.Title == "" {
			continue
		}
		items = append(items, novelty.Item{
			SourceID:  p.ID,
			Title:     it.Title,
			URL:       it.URL,
			MobileURL: it.MobileURL,
			Rank:      i + 1,
		})
	}
	return items, nil
}

// Result is the outcome of a multi-platform fetch round.
type Result struct {
	Items  []novelty.Item
	Failed []string // platform ids that yielded nothing
}

// All fetches every enabled platform in order with a pacing delay between
// requests. A failing platform is recorded and skipped; the round keeps
// going so one dead source cannot blank the whole report.
func (c *Client) All(ctx context.Context, platforms []config.Platform) (Result, error) {
	var res Result
	first := true
	for _, p := range platforms {
		if !p.IsEnabled() {
			continue
		}
		if !first {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(c.interval):
			}
		}
		first = false

		items, err := c.Platform(ctx, p)
		if err != nil {
			c.log.Error("platform fetch failed", "platform", p.ID, "error", err)
			res.Failed = append(res.Failed, p.ID)
			continue
		}
		c.log.Info("platform fetched", "platform", p.ID, "items", len(items))
		res.Items = append(res.Items, items...)
	}
	return res, nil
}
