package search

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// GoogleConfig holds Custom Search JSON API settings.
type GoogleConfig struct {
	APIKey   string
	EngineID string
	// Endpoint overrides the API base URL (tests).
	Endpoint string
}

// Google queries the Custom Search JSON API.
type Google struct {
	svc      *customsearch.Service
	engineID string
}

// NewGoogle builds a Google client. Both the API key and engine ID are required.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.EngineID) == "" {
		return nil, fmt.Errorf("google: %w", ErrMissingCredentials)
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create customsearch service: %w", err)
	}
	return &Google{svc: svc, engineID: cfg.EngineID}, nil
}

// Name implements Client.
func (*Google) Name() string { return ProviderGoogle }

// Search fetches one page of results.
func (g *Google) Search(ctx context.Context, q Query) ([]Result, error) {
	size := q.pageSize()
	start := (q.page()-1)*size + 1
	resp, err := g.svc.Cse.List().
		Q(q.Format()).
		Cx(g.engineID).
		Num(int64(size)).
		Start(int64(start)).
		Safe("off").
		Lr("lang_en").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("customsearch list: %w", err)
	}
	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
			Source:  ProviderGoogle,
		})
	}
	return results, nil
}
