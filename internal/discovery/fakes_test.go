package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/reddit-outreach/internal/classifier"
	"github.com/JakeFAU/reddit-outreach/internal/llm"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() (string, error) { return f.id, nil }

func pageHTML(topic string) string {
	return "<html><body><article><p>" +
		strings.Repeat("I have been using "+topic+" for my inbox every day and it works well. ", 8) +
		"</p></article></body></html>"
}

// fakeFetcher serves canned HTML keyed by URL; unknown URLs fail.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
	delay time.Duration

	inFlight    int
	maxInFlight int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchHTML(_ context.Context, url string) string {
	f.mu.Lock()
	f.calls[url]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	html := f.pages[url]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return html
}

func (f *fakeFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// fakeClassifier marks URLs relevant unless listed otherwise.
type fakeClassifier struct {
	mu         sync.Mutex
	irrelevant map[string]bool
	failing    map[string]bool
	calls      int
}

func (c *fakeClassifier) Classify(_ context.Context, _, url, _ string) (classifier.Relevance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failing[url] {
		return classifier.Relevance{}, fmt.Errorf("classify %s: %w", url, llm.ErrInvalidStructuredOutput)
	}
	if c.irrelevant[url] {
		return classifier.Relevance{Relevant: false, Confidence: 0.1, Reason: "unrelated"}, nil
	}
	return classifier.Relevance{Relevant: true, Confidence: 0.9, Reason: "discusses the product"}, nil
}

// scriptedProvider returns replies in order, repeating the last one.
type scriptedProvider struct {
	mu      sync.Mutex
	name    string
	replies []string
	err     error
	prompts []string
}

func (p *scriptedProvider) Name() string           { return p.name }
func (p *scriptedProvider) WebSearchEnabled() bool { return true }

func (p *scriptedProvider) GenerateText(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, req.Prompt)
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", nil
	}
	i := len(p.prompts) - 1
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	return p.replies[i], nil
}

func (p *scriptedProvider) GenerateStructured(context.Context, llm.Request, llm.Schema, any) error {
	return errors.New("not used")
}

// fakeFactory hands out scripted providers, or errors, per kind.
type fakeFactory struct {
	mu        sync.Mutex
	providers map[llm.Kind]*scriptedProvider
	errs      map[llm.Kind]error
	requested []llm.Kind
}

func (f *fakeFactory) New(kind llm.Kind, webSearch bool) (llm.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, kind)
	if !webSearch {
		return nil, errors.New("discovery providers need web search")
	}
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	p, ok := f.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, kind)
	}
	return p, nil
}
