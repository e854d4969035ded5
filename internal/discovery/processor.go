// Package discovery finds, fetches, classifies, and persists the Reddit
// pages that discuss a product.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/reddit-outreach/internal/archive"
	"github.com/JakeFAU/reddit-outreach/internal/classifier"
	"github.com/JakeFAU/reddit-outreach/internal/clock/system"
	"github.com/JakeFAU/reddit-outreach/internal/logging"
	"github.com/JakeFAU/reddit-outreach/internal/metrics"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/redditurl"
	"github.com/JakeFAU/reddit-outreach/internal/scraper"
	"github.com/JakeFAU/reddit-outreach/internal/telemetry"
)

// DefaultConcurrency caps simultaneous fetch+classify+persist pipelines.
const DefaultConcurrency = 4

// PageSavedTopic labels page events.
const PageSavedTopic = "page.saved"

// Fetcher returns rendered HTML for a URL, or "" once retries are spent.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) string
}

// Classifier decides page relevance.
type Classifier interface {
	Classify(ctx context.Context, product, url, pageText string) (classifier.Relevance, error)
}

// Policy selects how candidate pages are handled.
type Policy struct {
	// RequireRelevance classifies every usable page and persists only the
	// relevant ones.
	RequireRelevance bool
	// PersistFailed records unusable pages as failed rows; otherwise nothing
	// is written for them.
	PersistFailed bool
}

// RelevancePolicy is used by LLM-driven page discovery.
var RelevancePolicy = Policy{RequireRelevance: true}

// FailedTrackingPolicy is used by the search-based user workflow.
var FailedTrackingPolicy = Policy{PersistFailed: true}

// Run identifies one workflow invocation.
type Run struct {
	ID      string
	Product outreach.Product
}

// Processor runs the per-URL pipeline under a bounded concurrency gate.
type Processor struct {
	pages       outreach.PageStore
	fetcher     Fetcher
	classifier  Classifier
	policy      Policy
	concurrency int
	archiver    *archive.Archiver
	publisher   outreach.Publisher
	clock       outreach.Clock
	tracer      trace.Tracer
	logger      *zap.Logger
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithArchive stores raw HTML of every persisted scraped page.
func WithArchive(a *archive.Archiver) ProcessorOption {
	return func(p *Processor) { p.archiver = a }
}

// WithPublisher emits a PageEvent for every persisted scraped page.
func WithPublisher(pub outreach.Publisher) ProcessorOption {
	return func(p *Processor) { p.publisher = pub }
}

// WithClock overrides the event timestamp source.
func WithClock(c outreach.Clock) ProcessorOption {
	return func(p *Processor) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithTracerProvider records one span per candidate URL on tp instead of
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) ProcessorOption {
	return func(p *Processor) { p.tracer = telemetry.Tracer(tp) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logging.Named(l, "processor") }
}

// ErrNoClassifier is returned for every candidate when the policy demands
// relevance but no classifier was supplied.
var ErrNoClassifier = errors.New("relevance policy requires a classifier")

// NewProcessor wires a Processor. cls may be nil under a relevance policy
// when a Workflow supplies the classifier per provider run.
func NewProcessor(
	pages outreach.PageStore,
	fetcher Fetcher,
	cls Classifier,
	policy Policy,
	opts ...ProcessorOption,
) (*Processor, error) {
	if pages == nil || fetcher == nil {
		return nil, fmt.Errorf("page store and fetcher are required")
	}
	p := &Processor{
		pages:       pages,
		fetcher:     fetcher,
		classifier:  cls,
		policy:      policy,
		concurrency: DefaultConcurrency,
		clock:       system.New(),
		tracer:      telemetry.Tracer(nil),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// withClassifier returns a copy of p that classifies with cls.
func (p *Processor) withClassifier(cls Classifier) *Processor {
	cp := *p
	cp.classifier = cls
	return &cp
}

// Process runs every URL through the pipeline and returns the resulting
// pages in candidate order. Spellings of one canonical URL are processed
// once. One URL's failure never affects its siblings.
func (p *Processor) Process(ctx context.Context, run Run, urls []string) []outreach.Page {
	urls = uniqueCanonical(urls)
	results := make([]*outreach.Page, len(urls))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			ctx, span := p.tracer.Start(ctx, "discovery.process_url", trace.WithAttributes(
				attribute.String("run_id", run.ID),
				attribute.String("url", u),
			))
			defer span.End()
			page, err := p.processOne(ctx, run, u)
			span.SetAttributes(attribute.Bool("kept", page != nil))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				metrics.ObservePage(metrics.OutcomeError)
				p.logger.Warn("page task failed",
					zap.String("run_id", run.ID),
					zap.String("url", u),
					zap.Error(err),
				)
				p.recordFailure(ctx, run, u)
				return nil
			}
			results[i] = page
			return nil
		})
	}
	_ = g.Wait()

	pages := make([]outreach.Page, 0, len(urls))
	for _, page := range results {
		if page != nil {
			pages = append(pages, *page)
		}
	}
	return pages
}

// processOne walks one candidate through normalize, dedup check, fetch,
// validate, classify, and persist. A nil page means the candidate was
// discarded.
func (p *Processor) processOne(ctx context.Context, run Run, rawURL string) (*outreach.Page, error) {
	canonical := redditurl.Normalize(rawURL)
	if canonical == "" {
		metrics.ObservePage(metrics.OutcomeInvalid)
		return nil, nil
	}
	logger := p.logger.With(zap.String("run_id", run.ID), zap.String("url", canonical))

	existing, err := p.pages.GetPageByURL(ctx, run.Product.ID, canonical)
	found := err == nil
	if err != nil && !errors.Is(err, outreach.ErrNotFound) {
		return nil, fmt.Errorf("look up page: %w", err)
	}
	if found && existing.Status == outreach.PageStatusScraped {
		metrics.ObservePage(metrics.OutcomeCached)
		logger.Debug("page already scraped")
		return &existing, nil
	}

	html := p.fetcher.FetchHTML(ctx, canonical)
	if html == "" || scraper.Validate(html) != nil {
		metrics.ObservePage(metrics.OutcomeInvalid)
		logger.Info("page unusable", zap.Bool("fetched", html != ""))
		if p.policy.PersistFailed {
			if found {
				_, err = p.pages.UpdatePageStatus(ctx, existing.ID, outreach.PageStatusFailed)
			} else {
				_, _, err = p.pages.SavePage(ctx, outreach.PageInput{
					ProductID: run.Product.ID,
					URL:       canonical,
					Status:    outreach.PageStatusFailed,
				})
			}
			if err != nil {
				return nil, fmt.Errorf("record failed page: %w", err)
			}
		}
		return nil, nil
	}
	text := scraper.ExtractText(html)

	var confidence float64
	if p.policy.RequireRelevance {
		if p.classifier == nil {
			return nil, ErrNoClassifier
		}
		rel, err := p.classifier.Classify(ctx, run.Product.Name, canonical, text)
		if err != nil {
			return nil, err
		}
		if !rel.Relevant {
			metrics.ObservePage(metrics.OutcomeIrrelevant)
			logger.Info("skipping irrelevant page",
				zap.Float64("confidence", rel.Confidence),
				zap.String("reason", rel.Reason),
			)
			return nil, nil
		}
		confidence = rel.Confidence
		logger.Info("page relevant", zap.Float64("confidence", confidence))
	}

	page, created, err := p.pages.SavePage(ctx, outreach.PageInput{
		ProductID: run.Product.ID,
		URL:       canonical,
		HTML:      html,
		Text:      text,
		Status:    outreach.PageStatusScraped,
	})
	if err != nil {
		return nil, fmt.Errorf("save page: %w", err)
	}
	metrics.ObservePage(metrics.OutcomeSaved)
	logger.Info("saved page", zap.Bool("created", created), zap.String("subreddit", page.Subreddit))

	p.archive(ctx, run, page, logger)
	p.publish(ctx, run, page, confidence, logger)
	return &page, nil
}

// recordFailure writes a failed row after an unexpected task error when the
// policy tracks failures. An existing row keeps its content.
func (p *Processor) recordFailure(ctx context.Context, run Run, rawURL string) {
	if !p.policy.PersistFailed {
		return
	}
	if _, _, err := p.pages.SavePage(ctx, outreach.PageInput{
		ProductID: run.Product.ID,
		URL:       rawURL,
		Status:    outreach.PageStatusFailed,
	}); err != nil {
		p.logger.Debug("could not record failed page", zap.String("url", rawURL), zap.Error(err))
	}
}

func (p *Processor) archive(ctx context.Context, run Run, page outreach.Page, logger *zap.Logger) {
	if p.archiver == nil {
		return
	}
	uri, err := p.archiver.Save(ctx, run.Product.Name, page)
	if err != nil {
		logger.Warn("archive failed", zap.Error(err))
		return
	}
	logger.Debug("archived page", zap.String("uri", uri))
}

func (p *Processor) publish(ctx context.Context, run Run, page outreach.Page, confidence float64, logger *zap.Logger) {
	if p.publisher == nil {
		return
	}
	event := outreach.PageEvent{
		RunID:      run.ID,
		Product:    run.Product.Name,
		URL:        page.URL,
		Subreddit:  page.Subreddit,
		Status:     page.Status,
		Confidence: confidence,
		Timestamp:  p.clock.Now(),
	}
	if _, err := p.publisher.Publish(ctx, PageSavedTopic, event); err != nil {
		logger.Warn("publish page event failed", zap.Error(err))
	}
}

// uniqueCanonical keeps the first spelling of each canonical URL. Entries
// that do not normalize are kept so they are counted as invalid.
func uniqueCanonical(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if canonical := redditurl.Normalize(u); canonical != "" {
			if _, ok := seen[canonical]; ok {
				continue
			}
			seen[canonical] = struct{}{}
		}
		out = append(out, u)
	}
	return out
}
