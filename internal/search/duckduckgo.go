package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultDuckDuckGoURL     = "https://html.duckduckgo.com/html/"
	defaultDuckDuckGoTimeout = 20 * time.Second
	defaultSearchUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DuckDuckGoConfig controls the HTML-endpoint scraper.
type DuckDuckGoConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// DuckDuckGo scrapes the keyless HTML results page with colly.
type DuckDuckGo struct {
	cfg  DuckDuckGoConfig
	base *colly.Collector
}

// NewDuckDuckGo builds the client, applying defaults.
func NewDuckDuckGo(cfg DuckDuckGoConfig) *DuckDuckGo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDuckDuckGoURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultSearchUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDuckDuckGoTimeout
	}
	base := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	base.SetRequestTimeout(cfg.Timeout)
	return &DuckDuckGo{cfg: cfg, base: base}
}

// Name implements Client.
func (*DuckDuckGo) Name() string { return ProviderDuckDuckGo }

// Search fetches one page of results. The HTML endpoint pages by offset.
func (d *DuckDuckGo) Search(ctx context.Context, q Query) ([]Result, error) {
	size := q.pageSize()
	params := url.Values{"q": {q.Format()}}
	if offset := (q.page() - 1) * size; offset > 0 {
		params.Set("s", fmt.Sprint(offset))
	}
	target := d.cfg.BaseURL + "?" + params.Encode()

	var (
		results  []Result
		fetchErr error
	)
	collector := d.base.Clone()
	collector.OnHTML("div.result", func(e *colly.HTMLElement) {
		if len(results) >= size {
			return
		}
		href := unwrapRedirect(e.ChildAttr("a.result__a", "href"))
		if href == "" {
			return
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(e.ChildText("a.result__a")),
			Snippet: strings.TrimSpace(e.ChildText(".result__snippet")),
			URL:     href,
			Source:  ProviderDuckDuckGo,
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("duckduckgo search canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("duckduckgo visit: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("duckduckgo response: %w", fetchErr)
		}
	}
	return results, nil
}

// unwrapRedirect resolves DuckDuckGo's //duckduckgo.com/l/?uddg=<target>
// links to the target URL.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
