package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/logging"
	"github.com/JakeFAU/reddit-outreach/internal/metrics"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/search"
	"github.com/JakeFAU/reddit-outreach/internal/telemetry"
)

// Defaults for Options.
const (
	DefaultMaxPages           = 100
	DefaultMaxURLsPerProvider = 200
	failureSnippetRunes       = 50
)

// Options bound one discovery run.
type Options struct {
	// MaxPages is the target number of unique relevant pages; reaching it
	// skips the remaining providers.
	MaxPages int
	// MaxURLsPerProvider caps the candidates requested from each provider.
	MaxURLsPerProvider int
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.MaxURLsPerProvider <= 0 {
		o.MaxURLsPerProvider = DefaultMaxURLsPerProvider
	}
	return o
}

// Workflow queries each configured provider in turn for candidate URLs and
// feeds them through a relevance-gated Processor.
type Workflow struct {
	products  outreach.ProductStore
	factory   llm.Factory
	providers []llm.Kind
	processor *Processor
	classify  ClassifierSource
	ids       outreach.IDGenerator
	logger    *zap.Logger
}

// ClassifierSource builds the relevance classifier for one provider run.
type ClassifierSource func() (Classifier, error)

// WorkflowOption customizes NewWorkflow.
type WorkflowOption func(*Workflow)

// WithClassifierSource builds the classifier at the start of every provider
// run. An error fails that provider like any other provider error.
func WithClassifierSource(src ClassifierSource) WorkflowOption {
	return func(w *Workflow) { w.classify = src }
}

// NewWorkflow wires the LLM page-discovery workflow. providers are tried in
// order; an empty list means every supported provider.
func NewWorkflow(
	products outreach.ProductStore,
	factory llm.Factory,
	providers []llm.Kind,
	processor *Processor,
	ids outreach.IDGenerator,
	logger *zap.Logger,
	opts ...WorkflowOption,
) *Workflow {
	if len(providers) == 0 {
		providers = llm.Kinds()
	}
	w := &Workflow{
		products:  products,
		factory:   factory,
		providers: providers,
		processor: processor,
		ids:       ids,
		logger:    logging.Named(logger, "discovery"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run discovers relevant pages for productName. Provider problems are
// reported in the result rather than returned; the error is reserved for
// failures that make the run meaningless (product store unavailable).
func (w *Workflow) Run(ctx context.Context, productName string, opts Options) (outreach.DiscoveryResult, error) {
	opts = opts.withDefaults()
	product, _, err := w.products.GetOrCreateProduct(ctx, productName)
	if err != nil {
		return outreach.DiscoveryResult{}, fmt.Errorf("get product: %w", err)
	}
	run, err := newRun(w.ids, product)
	if err != nil {
		return outreach.DiscoveryResult{}, err
	}
	logger := w.logger.With(zap.String("run_id", run.ID), zap.String("product", product.Name))

	result := outreach.DiscoveryResult{RunID: run.ID, Product: product}
	var agg aggregate
	for _, kind := range w.providers {
		if agg.len() >= opts.MaxPages {
			logger.Info("target reached; skipping remaining providers", zap.Int("pages", agg.len()))
			break
		}
		pages, err := w.runProvider(ctx, run, kind, opts.MaxURLsPerProvider)
		if err != nil {
			label := failureLabel(string(kind), err)
			result.FailedProviders = append(result.FailedProviders, label)
			metrics.ObserveProviderFailure(string(kind))
			logger.Warn("provider failed", zap.String("provider", string(kind)), zap.Error(err))
			continue
		}
		agg.add(pages)
		logger.Info("provider finished",
			zap.String("provider", string(kind)),
			zap.Int("pages", len(pages)),
			zap.Int("unique_total", agg.len()),
		)
	}

	result.Pages = agg.pages
	result.URLsFound = len(agg.pages)
	result.PagesScraped = len(agg.pages)
	if result.URLsFound == 0 {
		result.Message = "No relevant Reddit pages found"
		return result, nil
	}
	result.Success = result.PagesScraped > 0
	result.Message = fmt.Sprintf("Successfully found %d page(s) and scraped %d page(s)",
		result.URLsFound, result.PagesScraped)
	return result, nil
}

func (w *Workflow) runProvider(ctx context.Context, run Run, kind llm.Kind, maxURLs int) (_ []outreach.Page, err error) {
	ctx, span := telemetry.Tracer(nil).Start(ctx, "discovery.provider", trace.WithAttributes(
		attribute.String("run_id", run.ID),
		attribute.String("provider", string(kind)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	provider, err := w.factory.New(kind, true)
	if err != nil {
		return nil, err
	}
	proc := w.processor
	if w.classify != nil {
		cls, err := w.classify()
		if err != nil {
			return nil, err
		}
		proc = proc.withClassifier(cls)
	}
	urls, err := FindCandidates(ctx, provider, run.Product.Name, maxURLs)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("candidates", len(urls)))
	metrics.ObserveCandidates(provider.Name(), len(urls))
	w.logger.Info("found candidate urls",
		zap.String("run_id", run.ID),
		zap.String("provider", provider.Name()),
		zap.Int("candidates", len(urls)),
	)
	return proc.Process(ctx, run, urls), nil
}

func newRun(ids outreach.IDGenerator, product outreach.Product) (Run, error) {
	run := Run{Product: product}
	if ids == nil {
		return run, nil
	}
	id, err := ids.NewID()
	if err != nil {
		return Run{}, fmt.Errorf("generate run id: %w", err)
	}
	run.ID = id
	return run, nil
}

// failureLabel renders a provider failure for the summary report.
func failureLabel(name string, err error) string {
	switch {
	case errors.Is(err, llm.ErrMissingCredentials), errors.Is(err, search.ErrMissingCredentials):
		return name + " (missing API key)"
	case errors.Is(err, llm.ErrUnknownProvider), errors.Is(err, search.ErrUnknownProvider):
		return name + " (backend unavailable)"
	default:
		msg := []rune(err.Error())
		if len(msg) > failureSnippetRunes {
			msg = msg[:failureSnippetRunes]
		}
		return fmt.Sprintf("%s (error: %s)", name, string(msg))
	}
}

// aggregate collects pages across providers, unique by stored URL.
type aggregate struct {
	seen  map[string]struct{}
	pages []outreach.Page
}

func (a *aggregate) add(pages []outreach.Page) {
	if a.seen == nil {
		a.seen = make(map[string]struct{})
	}
	for _, p := range pages {
		if _, ok := a.seen[p.URL]; ok {
			continue
		}
		a.seen[p.URL] = struct{}{}
		a.pages = append(a.pages, p)
	}
}

func (a *aggregate) len() int { return len(a.pages) }
