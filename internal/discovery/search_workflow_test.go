package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/search"
	"github.com/JakeFAU/reddit-outreach/internal/storage/memory"
)

type fakeFinder struct {
	urls []string
	err  error
}

func (fakeFinder) Name() string { return "google" }

func (f fakeFinder) Find(context.Context, string, int) ([]string, error) {
	return f.urls, f.err
}

type countingExtractor struct {
	mu    sync.Mutex
	pages []string
	per   int
	err   error
}

func (e *countingExtractor) ExtractAndStore(_ context.Context, _ string, page outreach.Page) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pages = append(e.pages, page.URL)
	return e.per, e.err
}

func newSearchWorkflow(t *testing.T, finder URLFinder, fetcher *fakeFetcher, extractor UserExtractor) (*SearchWorkflow, *memory.Store) {
	t.Helper()
	store := memory.NewStore(nil)
	proc, err := NewProcessor(store, fetcher, nil, FailedTrackingPolicy)
	require.NoError(t, err)
	return NewSearchWorkflow(store, finder, proc, extractor, fixedIDs{id: "run-7"}, nil), store
}

func TestSearchWorkflowScrapesAndExtracts(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{pageA: pageHTML("Acme")})
	extractor := &countingExtractor{per: 2}
	wf, store := newSearchWorkflow(t, fakeFinder{urls: []string{pageA, pageB}}, fetcher, extractor)

	result, err := wf.Run(context.Background(), "Acme", 0)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.URLsFound)
	require.Equal(t, 1, result.PagesScraped)
	require.Equal(t, 2, result.UsersExtracted)
	require.Equal(t, "Successfully processed 1 pages and extracted 2 users", result.Message)
	require.Equal(t, []string{pageA}, extractor.pages)

	failed, err := store.GetPageByURL(context.Background(), result.Product.ID, pageB)
	require.NoError(t, err)
	require.Equal(t, outreach.PageStatusFailed, failed.Status)
}

func TestSearchWorkflowExtractionErrorsDoNotAbort(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{pageA: pageHTML("Acme"), pageB: pageHTML("Acme")})
	extractor := &countingExtractor{err: errors.New("model unavailable")}
	wf, _ := newSearchWorkflow(t, fakeFinder{urls: []string{pageA, pageB}}, fetcher, extractor)

	result, err := wf.Run(context.Background(), "Acme", 5)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.PagesScraped)
	require.Zero(t, result.UsersExtracted)
	require.Len(t, extractor.pages, 2)
}

func TestSearchWorkflowStopsExtractingWithoutCredentials(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{pageA: pageHTML("Acme"), pageB: pageHTML("Acme")})
	extractor := &countingExtractor{err: fmt.Errorf("create extraction provider: %w", llm.ErrMissingCredentials)}
	wf, _ := newSearchWorkflow(t, fakeFinder{urls: []string{pageA, pageB}}, fetcher, extractor)

	result, err := wf.Run(context.Background(), "Acme", 5)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.PagesScraped)
	require.Zero(t, result.UsersExtracted)
	require.Equal(t, []string{"extraction (missing API key)"}, result.FailedProviders)
	require.Len(t, extractor.pages, 1)
}

func TestSearchWorkflowNonSuccessMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		finder  fakeFinder
		message string
		failed  []string
	}{
		{"no urls", fakeFinder{}, "No Reddit URLs found", nil},
		{"search error", fakeFinder{err: errors.New("quota exceeded")}, "No Reddit URLs found", []string{"google (error: quota exceeded)"}},
		{"missing search key", fakeFinder{err: fmt.Errorf("create search client: %w", search.ErrMissingCredentials)}, "No Reddit URLs found", []string{"google (missing API key)"}},
		{"nothing scraped", fakeFinder{urls: []string{pageC}}, "No pages successfully scraped", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wf, _ := newSearchWorkflow(t, tt.finder, newFakeFetcher(nil), &countingExtractor{})
			result, err := wf.Run(context.Background(), "Acme", 5)
			require.NoError(t, err)
			require.False(t, result.Success)
			require.Equal(t, tt.message, result.Message)
			require.Equal(t, tt.failed, result.FailedProviders)
		})
	}
}
