package redditurl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "blank", in: "   ", want: ""},
		{name: "already canonical", in: "https://www.reddit.com/r/x/comments/1", want: "https://www.reddit.com/r/x/comments/1"},
		{name: "old mirror with tracking and slash", in: "http://old.reddit.com/r/x/comments/1/?utm_source=a", want: "https://www.reddit.com/r/x/comments/1"},
		{name: "new mirror", in: "https://new.reddit.com/r/golang/", want: "https://www.reddit.com/r/golang"},
		{name: "apex host", in: "https://reddit.com/r/golang", want: "https://www.reddit.com/r/golang"},
		{name: "bare apex", in: "reddit.com/r/golang/comments/abc/", want: "https://www.reddit.com/r/golang/comments/abc"},
		{name: "bare www", in: "www.reddit.com/r/golang", want: "https://www.reddit.com/r/golang"},
		{name: "upper case host", in: "https://WWW.Reddit.COM/r/Golang", want: "https://www.reddit.com/r/Golang"},
		{name: "root path kept", in: "https://old.reddit.com/", want: "https://www.reddit.com/"},
		{name: "keeps other params in order", in: "https://reddit.com/r/x?b=2&utm_medium=y&a=1", want: "https://www.reddit.com/r/x?b=2&a=1"},
		{name: "only tracking params", in: "https://reddit.com/r/x?utm_source=a&utm_campaign=b", want: "https://www.reddit.com/r/x"},
		{name: "fragment dropped", in: "https://www.reddit.com/r/x/#comments", want: "https://www.reddit.com/r/x"},
		{name: "default port dropped", in: "https://www.reddit.com:443/r/x", want: "https://www.reddit.com/r/x"},
		{name: "short link host untouched", in: "http://redd.it/abc123", want: "https://redd.it/abc123"},
		{name: "no host", in: "/r/x", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	t.Parallel()

	variants := []string{
		"http://old.reddit.com/r/x/comments/1/?utm_source=a",
		"https://www.reddit.com/r/x/comments/1",
		"https://new.reddit.com/r/x/comments/1/",
		"reddit.com/r/x/comments/1?utm_campaign=launch",
	}
	want := Normalize(variants[0])
	for _, v := range variants[1:] {
		require.Equal(t, want, Normalize(v), v)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"http://old.reddit.com/r/x/comments/1/?utm_source=a",
		"reddit.com/r/a//",
		"https://www.reddit.com/",
		"https://www.reddit.com?a=1&utm_x=2",
		"https://www.reddit.com/r/caf%C3%A9/comments/9/",
		"https://example.com/path/",
		"https://redd.it/xyz",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), in)
	}
}

func TestSubreddit(t *testing.T) {
	t.Parallel()

	require.Equal(t, "golang", Subreddit("https://old.reddit.com/r/golang/comments/1/title/"))
	require.Equal(t, "golang", Subreddit("reddit.com/r/golang"))
	require.Equal(t, "golang", Subreddit("https://www.reddit.com/r/golang?sort=new"))
	require.Equal(t, "unknown", Subreddit("https://www.reddit.com/user/someone"))
	require.Equal(t, "unknown", Subreddit(""))
}

func TestMirrorURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://www.reddit.com/r/x/comments/1": "https://old.reddit.com/r/x/comments/1",
		"https://reddit.com/r/x":                "https://old.reddit.com/r/x",
		"https://new.reddit.com/r/x?a=1":        "https://old.reddit.com/r/x?a=1",
		"https://old.reddit.com/r/x":            "https://old.reddit.com/r/x",
		"https://example.com/r/x":               "https://example.com/r/x",
	}
	for in, want := range tests {
		if got := MirrorURL(in); got != want {
			t.Fatalf("MirrorURL(%q) = %q, want %q", in, got, want)
		}
	}
}
