package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedRenderer struct {
	mu       sync.Mutex
	failures int
	html     string
	urls     []string
}

func (r *scriptedRenderer) Render(_ context.Context, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	if r.failures > 0 {
		r.failures--
		return "", errors.New("navigation failed")
	}
	return r.html, nil
}

type panicRenderer struct{}

func (panicRenderer) Render(context.Context, string) (string, error) {
	panic("browser crashed")
}

func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestFetchHTMLRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	renderer := &scriptedRenderer{failures: 2, html: "<html>ok</html>"}
	var waits []time.Duration
	s := New(renderer, nil, nil, WithSleep(recordingSleep(&waits)))

	got := s.FetchHTML(context.Background(), "https://www.reddit.com/r/x/comments/1")
	require.Equal(t, "<html>ok</html>", got)
	require.Len(t, renderer.urls, 3)
	for _, u := range renderer.urls {
		require.Equal(t, "https://old.reddit.com/r/x/comments/1", u)
	}
	require.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second}, waits)
}

func TestFetchHTMLExhaustedReturnsEmpty(t *testing.T) {
	t.Parallel()

	renderer := &scriptedRenderer{failures: 10}
	var waits []time.Duration
	s := New(renderer, NewRetryPolicy(3, time.Millisecond, time.Millisecond, time.Millisecond), nil, WithSleep(recordingSleep(&waits)))

	require.Empty(t, s.FetchHTML(context.Background(), "https://example.com/a"))
	require.Len(t, renderer.urls, 3)
	require.Len(t, waits, 2)
}

func TestFetchHTMLRecoversPanics(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	s := New(panicRenderer{}, NewRetryPolicy(2, 0, 0, 0), nil, WithSleep(recordingSleep(&waits)))
	require.Empty(t, s.FetchHTML(context.Background(), "https://www.reddit.com/r/x"))
	require.Len(t, waits, 1)
}

func TestFetchHTMLStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	renderer := &scriptedRenderer{failures: 10}
	s := New(renderer, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Empty(t, s.FetchHTML(ctx, "https://www.reddit.com/r/x"))
	require.Empty(t, renderer.urls)
}
