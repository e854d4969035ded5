package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const ddgPage = `<html><body>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reddit.com%2Fr%2Facme%2Fcomments%2F1%2Fx%2F&amp;rut=abc">Acme on Reddit</a></h2>
  <a class="result__snippet">People discussing Acme</a>
</div>
<div class="result">
  <h2><a class="result__a" href="https://example.com/acme">Acme site</a></h2>
</div>
<div class="result">
  <h2><a class="result__a" href="javascript:void(0)">bad</a></h2>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		query string
		start string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query().Get("q")
		start = r.URL.Query().Get("s")
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ddgPage))
	}))
	t.Cleanup(srv.Close)

	client := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: srv.URL + "/html/"})
	results, err := client.Search(context.Background(), Query{Text: "Acme site:reddit.com", Page: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "https://www.reddit.com/r/acme/comments/1/x/", results[0].URL)
	require.Equal(t, "Acme on Reddit", results[0].Title)
	require.Equal(t, "People discussing Acme", results[0].Snippet)
	require.Equal(t, "https://example.com/acme", results[1].URL)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Acme site:reddit.com", query)
	require.Equal(t, "10", start)
}

func TestDuckDuckGoSearchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: srv.URL}).Search(context.Background(), Query{Text: "Acme"})
	require.Error(t, err)
}

func TestUnwrapRedirect(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"": "",
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fredd.it%2Fabc": "https://redd.it/abc",
		"https://www.reddit.com/r/a":                           "https://www.reddit.com/r/a",
		"/relative/path":                                       "",
		"javascript:void(0)":                                   "",
	}
	for in, want := range cases {
		require.Equal(t, want, unwrapRedirect(in), in)
	}
}
