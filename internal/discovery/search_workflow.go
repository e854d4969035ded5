package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/logging"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

// DefaultSearchMaxURLs caps search results for the search-based workflow.
const DefaultSearchMaxURLs = 20

// URLFinder returns Reddit URLs for a product from a search engine.
type URLFinder interface {
	Name() string
	Find(ctx context.Context, product string, maxResults int) ([]string, error)
}

// UserExtractor extracts and persists users for a saved page.
type UserExtractor interface {
	ExtractAndStore(ctx context.Context, product string, page outreach.Page) (int, error)
}

// SearchWorkflow is the simpler discovery path: search engine results are
// scraped without relevance gating, failures are tracked as failed rows, and
// users are extracted from every scraped page.
type SearchWorkflow struct {
	products  outreach.ProductStore
	finder    URLFinder
	processor *Processor
	extractor UserExtractor
	ids       outreach.IDGenerator
	logger    *zap.Logger
}

// NewSearchWorkflow wires the search-based workflow. processor should use
// FailedTrackingPolicy.
func NewSearchWorkflow(
	products outreach.ProductStore,
	finder URLFinder,
	processor *Processor,
	extractor UserExtractor,
	ids outreach.IDGenerator,
	logger *zap.Logger,
) *SearchWorkflow {
	return &SearchWorkflow{
		products:  products,
		finder:    finder,
		processor: processor,
		extractor: extractor,
		ids:       ids,
		logger:    logging.Named(logger, "search-workflow"),
	}
}

// Run searches, scrapes, and extracts users for productName.
func (w *SearchWorkflow) Run(ctx context.Context, productName string, maxURLs int) (outreach.DiscoveryResult, error) {
	if maxURLs <= 0 {
		maxURLs = DefaultSearchMaxURLs
	}
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

	urls, err := w.finder.Find(ctx, product.Name, maxURLs)
	if err != nil {
		result.FailedProviders = append(result.FailedProviders, failureLabel(w.finder.Name(), err))
		logger.Warn("search failed", zap.String("provider", w.finder.Name()), zap.Error(err))
	}
	result.URLsFound = len(urls)
	if len(urls) == 0 {
		result.Message = "No Reddit URLs found"
		return result, nil
	}

	result.Pages = w.processor.Process(ctx, run, urls)
	result.PagesScraped = len(result.Pages)
	if result.PagesScraped == 0 {
		result.Message = "No pages successfully scraped"
		return result, nil
	}

	for _, page := range result.Pages {
		n, err := w.extractor.ExtractAndStore(ctx, product.Name, page)
		result.UsersExtracted += n
		if err == nil {
			continue
		}
		if errors.Is(err, llm.ErrMissingCredentials) || errors.Is(err, llm.ErrUnknownProvider) {
			// Every remaining page would fail the same way.
			result.FailedProviders = append(result.FailedProviders, failureLabel("extraction", err))
			logger.Warn("user extraction unavailable", zap.Error(err))
			break
		}
		logger.Warn("user extraction failed", zap.String("url", page.URL), zap.Error(err))
	}
	result.Success = true
	result.Message = fmt.Sprintf("Successfully processed %d pages and extracted %d users",
		result.PagesScraped, result.UsersExtracted)
	return result, nil
}
