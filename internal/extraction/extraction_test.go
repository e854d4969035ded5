package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/storage/memory"
)

type textProvider struct {
	reply   string
	err     error
	calls   int
	lastReq llm.Request
}

func (p *textProvider) Name() string           { return "stub" }
func (p *textProvider) WebSearchEnabled() bool { return false }

func (p *textProvider) GenerateText(_ context.Context, req llm.Request) (string, error) {
	p.calls++
	p.lastReq = req
	return p.reply, p.err
}

func (p *textProvider) GenerateStructured(context.Context, llm.Request, llm.Schema, any) error {
	return errors.New("not used")
}

func savedPage(t *testing.T, store *memory.Store, text string) outreach.Page {
	t.Helper()
	page, _, err := store.SavePage(context.Background(), outreach.PageInput{
		ProductID: 1,
		URL:       "https://www.reddit.com/r/acme/comments/1/x",
		HTML:      "<html><body>" + text + "</body></html>",
		Text:      text,
		Status:    outreach.PageStatusScraped,
	})
	require.NoError(t, err)
	return page
}

func TestExtractAndStoreIsIdempotentPerUsername(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(nil)
	page := savedPage(t, store, "u/alice: I have used Acme for a year")
	provider := &textProvider{reply: `[{"username":"alice","profile_url":"https://reddit.com/user/alice","reason_text":"used Acme for a year"}]`}
	extractor := New(provider, store, nil)

	created, err := extractor.ExtractAndStore(context.Background(), "Acme", page)
	require.NoError(t, err)
	require.Equal(t, 1, created)
	require.Contains(t, provider.lastReq.Prompt, `the product "Acme"`)
	require.Contains(t, provider.lastReq.Prompt, "u/alice: I have used Acme")
	require.Equal(t, systemPrompt, provider.lastReq.System)

	provider.reply = `[{"username":"alice","profile_url":"https://reddit.com/user/alice","reason_text":"still using Acme"}]`
	created, err = extractor.ExtractAndStore(context.Background(), "Acme", page)
	require.NoError(t, err)
	require.Zero(t, created)

	users, err := store.ListUsers(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "still using Acme", users[0].ReasonText)
}

func TestExtractAndStoreSkipsEmptyPages(t *testing.T) {
	t.Parallel()

	provider := &textProvider{}
	created, err := New(provider, memory.NewStore(nil), nil).
		ExtractAndStore(context.Background(), "Acme", outreach.Page{URL: "https://www.reddit.com/r/a"})
	require.NoError(t, err)
	require.Zero(t, created)
	require.Zero(t, provider.calls)
}

func TestExtractPropagatesProviderErrors(t *testing.T) {
	t.Parallel()

	provider := &textProvider{err: llm.ErrMissingCredentials}
	_, err := New(provider, nil, nil).Extract(context.Background(), "Acme", "content")
	require.ErrorIs(t, err, llm.ErrMissingCredentials)
}

func TestExtractTruncatesLongContent(t *testing.T) {
	t.Parallel()

	provider := &textProvider{reply: "[]"}
	long := make([]byte, MaxContentRunes+100)
	for i := range long {
		long[i] = 'a'
	}
	users, err := New(provider, nil, nil).Extract(context.Background(), "Acme", string(long))
	require.NoError(t, err)
	require.Empty(t, users)
	require.Contains(t, provider.lastReq.Prompt, TruncationMarker)
}
