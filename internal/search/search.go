// Package search finds Reddit threads through conventional web search
// backends, used by the search-based user-discovery workflow.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrMissingCredentials is returned when a backend needs an API key or
	// engine ID that is not configured.
	ErrMissingCredentials = errors.New("missing search credentials")
	// ErrUnknownProvider is returned for backend names outside the closed set.
	ErrUnknownProvider = errors.New("unknown search provider")
)

// Supported backend names.
const (
	ProviderGoogle     = "google"
	ProviderDuckDuckGo = "duckduckgo"
)

// DefaultPageSize is the largest page most search APIs return.
const DefaultPageSize = 10

// Query is a backend-neutral search request.
type Query struct {
	Text            string
	ExcludeKeywords []string
	ExcludeDomains  []string
	Page            int
	PageSize        int
}

// Format renders the query text with its exclusions.
func (q Query) Format() string {
	var b strings.Builder
	b.WriteString(q.Text)
	for _, k := range q.ExcludeKeywords {
		b.WriteString(" -")
		b.WriteString(k)
	}
	for _, d := range q.ExcludeDomains {
		b.WriteString(" -site:")
		b.WriteString(d)
	}
	return b.String()
}

func (q Query) page() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

func (q Query) pageSize() int {
	if q.PageSize < 1 || q.PageSize > DefaultPageSize {
		return DefaultPageSize
	}
	return q.PageSize
}

// Result is one search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
	Source  string
}

// Client runs one page of a search.
type Client interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider   string
	Google     GoogleConfig
	DuckDuckGo DuckDuckGoConfig
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGoogle, "":
		return NewGoogle(ctx, cfg.Google)
	case ProviderDuckDuckGo:
		return NewDuckDuckGo(cfg.DuckDuckGo), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// RedditURLFinder pages through a backend collecting Reddit thread URLs.
type RedditURLFinder struct {
	client Client
	logger *zap.Logger
}

// NewRedditURLFinder wraps client.
func NewRedditURLFinder(client Client, logger *zap.Logger) *RedditURLFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedditURLFinder{client: client, logger: logger.Named("search")}
}

// Name reports the backend name.
func (f *RedditURLFinder) Name() string { return f.client.Name() }

// Find searches "<product> site:reddit.com" and returns up to maxResults
// unique URLs containing reddit.com, in result order. Trailing punctuation
// is trimmed. A backend failure on a later page keeps what was collected.
func (f *RedditURLFinder) Find(ctx context.Context, product string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		return nil, nil
	}
	q := Query{
		Text:     product + " site:reddit.com",
		PageSize: min(maxResults, DefaultPageSize),
	}
	pages := (maxResults + DefaultPageSize - 1) / DefaultPageSize
	seen := make(map[string]struct{})
	var urls []string
	for page := 1; page <= pages && len(urls) < maxResults; page++ {
		q.Page = page
		results, err := f.client.Search(ctx, q)
		if err != nil {
			if len(urls) > 0 {
				f.logger.Warn("search page failed; keeping earlier results",
					zap.String("provider", f.client.Name()),
					zap.Int("page", page),
					zap.Error(err),
				)
				break
			}
			return nil, fmt.Errorf("search %s: %w", f.client.Name(), err)
		}
		if len(results) == 0 {
			break
		}
		for _, r := range results {
			if !strings.Contains(r.URL, "reddit.com") {
				continue
			}
			u := strings.TrimRight(r.URL, ".,;!?)")
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
			if len(urls) >= maxResults {
				break
			}
		}
	}
	f.logger.Info("search finished",
		zap.String("provider", f.client.Name()),
		zap.String("product", product),
		zap.Int("urls", len(urls)),
	)
	return urls, nil
}
