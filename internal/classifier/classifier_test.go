package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
)

type stubProvider struct {
	reply   string
	err     error
	lastReq llm.Request
	schema  llm.Schema
}

func (s *stubProvider) Name() string           { return "stub" }
func (s *stubProvider) WebSearchEnabled() bool { return false }

func (s *stubProvider) GenerateText(context.Context, llm.Request) (string, error) {
	return s.reply, s.err
}

func (s *stubProvider) GenerateStructured(_ context.Context, req llm.Request, schema llm.Schema, out any) error {
	s.lastReq = req
	s.schema = schema
	if s.err != nil {
		return s.err
	}
	return llm.DecodeStructured(s.reply, out)
}

func TestClassifyRelevant(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{reply: `{"relevant":true,"confidence":0.92,"reason":"user reviews Acme"}`}
	c := New(stub, nil)

	got, err := c.Classify(context.Background(), "Acme", "https://www.reddit.com/r/a/1", "I have used Acme for a year")
	require.NoError(t, err)
	require.Equal(t, Relevance{Relevant: true, Confidence: 0.92, Reason: "user reviews Acme"}, got)
	require.Contains(t, stub.lastReq.Prompt, "Product: Acme")
	require.Contains(t, stub.lastReq.Prompt, "URL: https://www.reddit.com/r/a/1")
	require.Contains(t, stub.lastReq.System, "strict relevance classifier")
	require.Equal(t, "page_relevance", stub.schema.Name)
}

func TestClassifyTruncatesSnippet(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{reply: `{"relevant":false,"confidence":0.2,"reason":"no"}`}
	c := New(stub, nil)

	text := strings.Repeat("é", MaxSnippetRunes+500)
	_, err := c.Classify(context.Background(), "Acme", "u", text)
	require.NoError(t, err)

	_, snippet, found := strings.Cut(stub.lastReq.Prompt, "Page text:\n")
	require.True(t, found)
	require.Equal(t, MaxSnippetRunes, utf8.RuneCountInString(snippet))
}

func TestClassifyInvalidOutputIsError(t *testing.T) {
	t.Parallel()

	tests := []string{
		`not json at all`,
		`{"confidence":0.5,"reason":"missing relevant"}`,
		`{"relevant":true,"confidence":3,"reason":"out of range"}`,
	}
	for _, reply := range tests {
		c := New(&stubProvider{reply: reply}, nil)
		_, err := c.Classify(context.Background(), "Acme", "u", "text")
		require.ErrorIs(t, err, llm.ErrInvalidStructuredOutput, reply)
	}
}

func TestClassifyProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream down")
	c := New(&stubProvider{err: boom}, nil)
	_, err := c.Classify(context.Background(), "Acme", "u", "text")
	require.ErrorIs(t, err, boom)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", Truncate("abc", 5))
	require.Equal(t, "ab", Truncate("abc", 2))
	require.Equal(t, "hé", Truncate("héllo", 2))
}
