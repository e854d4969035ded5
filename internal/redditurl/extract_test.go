package redditurl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "scheme and bare mentions",
			in:   "check https://reddit.com/r/a/1, also reddit.com/r/b/2!",
			want: []string{"https://reddit.com/r/a/1", "https://reddit.com/r/b/2"},
		},
		{
			name: "no matches",
			in:   "nothing to see at https://example.com/r/a",
			want: nil,
		},
		{
			name: "duplicates collapse in first-seen order",
			in:   "https://www.reddit.com/r/a/1\nhttps://old.reddit.com/r/b/2\nhttps://www.reddit.com/r/a/1.",
			want: []string{"https://www.reddit.com/r/a/1", "https://old.reddit.com/r/b/2"},
		},
		{
			name: "markdown links and short links",
			in:   "[thread](https://www.reddit.com/r/a/comments/9/x/) and https://redd.it/abc?",
			want: []string{"https://www.reddit.com/r/a/comments/9/x/", "https://redd.it/abc"},
		},
		{
			name: "http link is not repeated as https",
			in:   "see http://old.reddit.com/r/a/1",
			want: []string{"http://old.reddit.com/r/a/1"},
		},
		{
			name: "bare subdomain",
			in:   "- old.reddit.com/r/tools/comments/5;",
			want: []string{"https://old.reddit.com/r/tools/comments/5"},
		},
		{
			name: "lookalike host is not a mention",
			in:   "visit notreddit.com/r/x or my-reddit.com/r/y",
			want: nil,
		},
		{
			name: "markdown link with url as its text",
			in:   "[https://www.reddit.com/r/a/1](https://www.reddit.com/r/a/1)",
			want: []string{"https://www.reddit.com/r/a/1"},
		},
		{
			name: "bare mentions at start and inside brackets",
			in:   "reddit.com/r/d/4 and [reddit.com/r/e/5]",
			want: []string{"https://reddit.com/r/d/4", "https://reddit.com/r/e/5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Extract(tt.in))
		})
	}
}
