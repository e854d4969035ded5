package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func page(body string) string {
	return "<html><head><title>t</title></head><body><p>" + body + "</p></body></html>"
}

func filler(n int) string {
	const word = "lorem ipsum dolor sit amet "
	return strings.Repeat(word, n/len(word)+1)[:n]
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want error
	}{
		{name: "empty", html: "", want: ErrEmptyPage},
		{name: "too short", html: page("hello there"), want: ErrTooShort},
		{
			name: "block phrase early on a long page",
			html: page("You've been blocked by network security. " + filler(3000)),
			want: ErrBlocked,
		},
		{
			name: "help ticket link",
			html: page(filler(300) + " file a ticket with support " + filler(2000)),
			want: ErrBlocked,
		},
		{
			name: "single forbidden on 1500 chars is fine",
			html: page("forbidden " + filler(1490)),
			want: nil,
		},
		{
			name: "short error page",
			html: page("404 page not found " + filler(381)),
			want: ErrErrorPage,
		},
		{
			name: "error phrases on long page are trusted",
			html: page("404 page not found " + filler(1500)),
			want: nil,
		},
		{
			name: "ordinary content",
			html: page(filler(600)),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.html)
			if tt.want == nil {
				require.NoError(t, err)
				require.True(t, IsValidPage(tt.html))
				return
			}
			require.ErrorIs(t, err, tt.want)
			require.False(t, IsValidPage(tt.html))
		})
	}
}

func TestValidateBlockPhraseOnlyInWindow(t *testing.T) {
	t.Parallel()

	text := filler(900) + " blocked "
	require.NoError(t, ValidateText(text))
	require.ErrorIs(t, ValidateText("blocked "+filler(900)), ErrBlocked)
}

func TestRunePrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "héll", runePrefix("héllo", 4))
	require.Equal(t, "ab", runePrefix("ab", 4))
}
