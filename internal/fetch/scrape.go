package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/trendwatch/trendwatch/internal/config"
	"github.com/trendwatch/trendwatch/internal/novelty"
)

// hot-list selectors tried in order against a platform's own page.
var listSelectors = []string{
	".hot-list li a",
	".rank-list li a",
	"ol li a",
	"ul.list li a",
	"article h2 a",
}

// scrapePage extracts a ranked title list from the platform's HTML page.
// Rank is the position in the first selector that yields results.
func (c *Client) scrapePage(ctx context.Context, p config.Platform) ([]novelty.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "trendwatch/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", p.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape %s: HTTP %d", p.ID, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: parse HTML: %w", p.ID, err)
	}

	var items []novelty.Item
	for _, selector := range listSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			title := strings.TrimSpace(s.Text())
			if title == "" || len(title) < 4 {
				return
			}
			url, _ := s.Attr("href")
			items = append(items, novelty.Item{
				SourceID: p.ID,
				Title:    title,
				URL:      absoluteURL(p.PageURL, url),
				Rank:     len(items) + 1,
			})
		})
		if len(items) > 0 {
			break
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("scrape %s: no list items found", p.ID)
	}
	return items, nil
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base = strings.TrimSuffix(base, "/")
	if strings.HasPrefix(href, "/") {
		// keep scheme://host only
		if idx := strings.Index(base, "://"); idx >= 0 {
			if slash := strings.Index(base[idx+3:], "/"); slash >= 0 {
				base = base[:idx+3+slash]
			}
		}
	}
	return base + "/" + strings.TrimPrefix(href, "/")
}
