// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/archive"
	"github.com/JakeFAU/reddit-outreach/internal/classifier"
	"github.com/JakeFAU/reddit-outreach/internal/clock/system"
	"github.com/JakeFAU/reddit-outreach/internal/config"
	"github.com/JakeFAU/reddit-outreach/internal/discovery"
	"github.com/JakeFAU/reddit-outreach/internal/extraction"
	"github.com/JakeFAU/reddit-outreach/internal/fetcher/headless"
	"github.com/JakeFAU/reddit-outreach/internal/id/uuid"
	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/metrics"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	pubsubpub "github.com/JakeFAU/reddit-outreach/internal/publisher/pubsub"
	"github.com/JakeFAU/reddit-outreach/internal/scraper"
	"github.com/JakeFAU/reddit-outreach/internal/search"
	"github.com/JakeFAU/reddit-outreach/internal/storage/gcs"
	"github.com/JakeFAU/reddit-outreach/internal/storage/local"
	"github.com/JakeFAU/reddit-outreach/internal/storage/memory"
	"github.com/JakeFAU/reddit-outreach/internal/storage/postgres"
	"github.com/JakeFAU/reddit-outreach/internal/telemetry"
)

// App holds the shared services. It is built once per command invocation
// and closed by a cobra hook when the command finishes.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     outreach.Store
	Blobs     outreach.BlobStore
	Publisher outreach.Publisher
	Scraper   *scraper.Scraper
	LLM       llm.Factory
	Clock     outreach.Clock
	IDs       outreach.IDGenerator

	extractor  *extraction.Extractor
	metricsSrv *http.Server
	closers    []func() error
}

// Option customizes New.
type Option func(*App)

// WithLLMFactory replaces the config-backed provider factory.
func WithLLMFactory(f llm.Factory) Option {
	return func(a *App) { a.LLM = f }
}

// WithRenderer replaces the chromedp renderer used by the scraper.
func WithRenderer(r outreach.Renderer) Option {
	return func(a *App) { a.Scraper = a.newScraper(r) }
}

// New wires every service cfg selects. It fails fast when a configured
// backend cannot be reached; LLM and search credentials are checked later,
// per provider, when a workflow asks for them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		Clock:  system.New(),
		IDs:    uuid.New(),
	}
	logger.Info("initializing application services")

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, func() error { store.Close(); return nil })

	if err := a.openArchive(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.LLM = llm.NewFactory(llm.Config{
		OpenAI:      credentials(cfg.LLM.OpenAI),
		Anthropic:   credentials(cfg.LLM.Anthropic),
		Grok:        credentials(cfg.LLM.Grok),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLMTimeout(),
		HTTPClient:  &http.Client{Timeout: cfg.LLMTimeout()},
		Logger:      logger.Named("llm"),
	})

	for _, opt := range opts {
		opt(a)
	}
	if a.Scraper == nil {
		renderer, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Scraper.MaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			Locale:            cfg.Scraper.Locale,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create headless renderer: %w", err)
		}
		a.closers = append(a.closers, func() error { renderer.Close(); return nil })
		a.Scraper = a.newScraper(renderer)
	}

	if err := a.startTracing(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.startMetricsServer()

	logger.Info("application services initialized",
		zap.String("database", cfg.Database.Driver),
		zap.String("archive", cfg.Archive.Driver),
		zap.Bool("events", a.Publisher != nil),
	)
	return a, nil
}

func (a *App) newScraper(r outreach.Renderer) *scraper.Scraper {
	mult, minDelay, maxDelay := a.Config.Backoff()
	policy := scraper.NewRetryPolicy(a.Config.Scraper.MaxAttempts, mult, minDelay, maxDelay)
	return scraper.New(r, policy, a.Logger)
}

func (a *App) openStore(ctx context.Context) (outreach.Store, error) {
	db := a.Config.Database
	switch db.Driver {
	case config.DriverPostgres:
		if db.MigrateOnStart {
			a.Logger.Info("applying database migrations")
			if err := postgres.MigrateUp(db.DSN); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		store, err := postgres.NewStore(ctx, postgres.Config{DSN: db.DSN, MaxConns: int32(db.MaxConns)})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store, nil
	case config.DriverMemory, "":
		a.Logger.Info("using in-memory store; nothing will persist across runs")
		return memory.NewStore(a.Clock), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", db.Driver)
	}
}

func (a *App) openArchive(ctx context.Context) error {
	ac := a.Config.Archive
	switch ac.Driver {
	case config.ArchiveLocal:
		blobs, err := local.New(local.Config{BaseDir: ac.LocalDir})
		if err != nil {
			return fmt.Errorf("failed to initialize archive: %w", err)
		}
		a.Blobs = blobs
	case config.ArchiveGCS:
		blobs, err := gcs.Open(ctx, gcs.Config{Bucket: ac.GCSBucket})
		if err != nil {
			return fmt.Errorf("failed to initialize archive: %w", err)
		}
		a.Blobs = blobs
		a.closers = append(a.closers, blobs.Close)
	case config.ArchiveNone, "":
	default:
		return fmt.Errorf("unknown archive driver: %s", ac.Driver)
	}
	return nil
}

func (a *App) openPublisher(ctx context.Context) error {
	ev := a.Config.Events
	if !ev.Enabled() {
		return nil
	}
	pub, err := pubsubpub.Open(ctx, ev.PubSubProject, ev.PubSubTopic)
	if err != nil {
		return fmt.Errorf("failed to initialize publisher: %w", err)
	}
	a.Publisher = pub
	a.closers = append(a.closers, pub.Close)
	return nil
}

func credentials(acct config.ProviderAccount) llm.Credentials {
	return llm.Credentials{APIKey: acct.APIKey, Model: acct.Model, BaseURL: acct.BaseURL}
}

func (a *App) processorOptions() []discovery.ProcessorOption {
	opts := []discovery.ProcessorOption{
		discovery.WithConcurrency(a.Config.Discovery.Concurrency),
		discovery.WithClock(a.Clock),
		discovery.WithLogger(a.Logger),
	}
	if a.Blobs != nil {
		opts = append(opts, discovery.WithArchive(archive.New(a.Blobs, a.Config.Archive.Prefix)))
	}
	if a.Publisher != nil {
		opts = append(opts, discovery.WithPublisher(a.Publisher))
	}
	return opts
}

// PageWorkflow builds the LLM page-discovery workflow. The classifier
// provider is built at the start of each provider run, so a missing
// credential is reported per provider instead of failing the command.
func (a *App) PageWorkflow() (*discovery.Workflow, error) {
	kind, err := llm.ParseKind(a.Config.LLM.ClassifierProvider)
	if err != nil {
		return nil, err
	}
	policy := discovery.RelevancePolicy
	policy.PersistFailed = a.Config.Discovery.PersistFailed
	proc, err := discovery.NewProcessor(a.Store, a.Scraper, nil, policy, a.processorOptions()...)
	if err != nil {
		return nil, err
	}
	classifiers := func() (discovery.Classifier, error) {
		provider, err := a.LLM.New(kind, false)
		if err != nil {
			return nil, fmt.Errorf("create classifier provider: %w", err)
		}
		return classifier.New(provider, a.Logger), nil
	}
	return discovery.NewWorkflow(a.Store, a.LLM, a.Config.Providers(), proc, a.IDs, a.Logger,
		discovery.WithClassifierSource(classifiers)), nil
}

// Extractor builds the user extractor on the configured extraction provider.
func (a *App) Extractor() (*extraction.Extractor, error) {
	kind, err := llm.ParseKind(a.Config.LLM.ExtractionProvider)
	if err != nil {
		return nil, err
	}
	provider, err := a.LLM.New(kind, false)
	if err != nil {
		return nil, fmt.Errorf("create extraction provider: %w", err)
	}
	return extraction.New(provider, a.Store, a.Logger), nil
}

// SearchWorkflow builds the search-based workflow. An empty provider uses
// search.provider from config. A search backend or extraction provider that
// cannot be built is reported in the run result.
func (a *App) SearchWorkflow(ctx context.Context, provider string) (*discovery.SearchWorkflow, error) {
	if provider == "" {
		provider = a.Config.Search.Provider
	}
	var finder discovery.URLFinder
	client, err := search.New(ctx, search.Config{
		Provider: provider,
		Google: search.GoogleConfig{
			APIKey:   a.Config.Search.Google.APIKey,
			EngineID: a.Config.Search.Google.CSEID,
		},
		DuckDuckGo: search.DuckDuckGoConfig{
			UserAgent: a.Config.Scraper.UserAgent,
			Timeout:   a.Config.DuckDuckGoTimeout(),
		},
	})
	switch {
	case err == nil:
		finder = search.NewRedditURLFinder(client, a.Logger)
	case errors.Is(err, search.ErrMissingCredentials), errors.Is(err, search.ErrUnknownProvider):
		finder = unavailableFinder{name: provider, err: fmt.Errorf("create search client: %w", err)}
	default:
		return nil, fmt.Errorf("create search client: %w", err)
	}

	var extractor discovery.UserExtractor
	ex, err := a.Extractor()
	switch {
	case err == nil:
		extractor = ex
	case errors.Is(err, llm.ErrMissingCredentials), errors.Is(err, llm.ErrUnknownProvider):
		extractor = unavailableExtractor{err: err}
	default:
		return nil, err
	}

	proc, err := discovery.NewProcessor(a.Store, a.Scraper, nil, discovery.FailedTrackingPolicy, a.processorOptions()...)
	if err != nil {
		return nil, err
	}
	return discovery.NewSearchWorkflow(a.Store, finder, proc, extractor, a.IDs, a.Logger), nil
}

// unavailableFinder stands in for a search backend that could not be built.
type unavailableFinder struct {
	name string
	err  error
}

func (f unavailableFinder) Name() string { return f.name }

func (f unavailableFinder) Find(context.Context, string, int) ([]string, error) {
	return nil, f.err
}

// unavailableExtractor stands in for an extraction provider that could not
// be built.
type unavailableExtractor struct{ err error }

func (e unavailableExtractor) ExtractAndStore(context.Context, string, outreach.Page) (int, error) {
	return 0, e.err
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger { return a.Logger }

// GetStore exposes the configured page store.
func (a *App) GetStore() outreach.Store { return a.Store }

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config { return a.Config }

// FindPages runs LLM page discovery for product.
func (a *App) FindPages(ctx context.Context, product string, opts discovery.Options) (outreach.DiscoveryResult, error) {
	wf, err := a.PageWorkflow()
	if err != nil {
		return outreach.DiscoveryResult{}, err
	}
	return wf.Run(ctx, product, opts)
}

// FindUsers runs the search-based workflow for product.
func (a *App) FindUsers(ctx context.Context, product, provider string, maxURLs int) (outreach.DiscoveryResult, error) {
	wf, err := a.SearchWorkflow(ctx, provider)
	if err != nil {
		return outreach.DiscoveryResult{}, err
	}
	return wf.Run(ctx, product, maxURLs)
}

// ExtractUsers extracts and stores users for one saved page. The extractor
// is built on first use.
func (a *App) ExtractUsers(ctx context.Context, product string, page outreach.Page) (int, error) {
	if a.extractor == nil {
		ex, err := a.Extractor()
		if err != nil {
			return 0, err
		}
		a.extractor = ex
	}
	return a.extractor.ExtractAndStore(ctx, product, page)
}

func (a *App) startTracing(ctx context.Context) error {
	tc := a.Config.Tracing
	if !tc.Enabled {
		return nil
	}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: tc.ServiceName,
		ProjectID:   tc.GCPProject,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})
	return nil
}

func (a *App) startMetricsServer() {
	addr := a.Config.Metrics.Addr
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.metricsSrv = srv
	go func() {
		a.Logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// Close gracefully shuts down all services in reverse order of creation.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
}
