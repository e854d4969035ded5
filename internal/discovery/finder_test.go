package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindCandidatesExtractsAndCaps(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{name: "openai", replies: []string{
		"Here you go:\n" +
			"1. https://www.reddit.com/r/a/comments/1/x.\n" +
			"2. https://old.reddit.com/r/b/comments/2/y\n" +
			"3. https://www.reddit.com/r/a/comments/1/x\n" +
			"4. reddit.com/r/c/comments/3/z",
	}}

	urls, err := FindCandidates(context.Background(), provider, "Acme", 2)
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://www.reddit.com/r/a/comments/1/x",
		"https://old.reddit.com/r/b/comments/2/y",
	}, urls)
	require.Len(t, provider.prompts, 1)
	require.Contains(t, provider.prompts[0], `discuss or mention the product "Acme"`)
	require.Contains(t, provider.prompts[0], "Provide at least 2 unique URLs")
}

func TestFindCandidatesRetriesWithBroaderPrompt(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{name: "grok", replies: []string{
		"I could not find anything.",
		"https://www.reddit.com/r/email/comments/9/fyxer_thoughts",
	}}

	urls, err := FindCandidates(context.Background(), provider, "Fyxer.ai", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.reddit.com/r/email/comments/9/fyxer_thoughts"}, urls)
	require.Len(t, provider.prompts, 2)
	require.Contains(t, provider.prompts[1], "Try multiple queries and synonyms")
	require.Contains(t, provider.prompts[1], "- fyxer ai\n")
	require.Contains(t, provider.prompts[1], "- site:reddit.com fyxer.ai\n")
}

func TestFindCandidatesEmptyAfterRetry(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{name: "openai", replies: []string{"nothing"}}
	urls, err := FindCandidates(context.Background(), provider, "Acme", 5)
	require.NoError(t, err)
	require.Empty(t, urls)
	require.Len(t, provider.prompts, 2)
}

func TestFindCandidatesPropagatesProviderError(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{name: "openai", err: errors.New("rate limited")}
	_, err := FindCandidates(context.Background(), provider, "Acme", 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestQueryVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		product string
		want    []string
	}{
		{
			name:    "plain name",
			product: "Acme",
			want:    []string{"acme", "acme ai", `"acme" reddit`, "site:reddit.com acme"},
		},
		{
			name:    "dotted name",
			product: " Fyxer.ai ",
			want: []string{
				"fyxer.ai",
				"fyxer ai",
				`"fyxer.ai" reddit`,
				"site:reddit.com fyxer.ai",
				"fyxer",
				`"fyxer" reddit`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, queryVariants(tt.product))
		})
	}
}
