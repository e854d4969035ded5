// Package config loads and validates outreach configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/search"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Archive drivers.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DatabaseConfig selects and tunes the page store.
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	MaxConns       int    `mapstructure:"max_conns"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// LLMConfig configures the language-model providers.
type LLMConfig struct {
	Providers          []string        `mapstructure:"providers"`
	ClassifierProvider string          `mapstructure:"classifier_provider"`
	ExtractionProvider string          `mapstructure:"extraction_provider"`
	MaxTokens          int             `mapstructure:"max_tokens"`
	Temperature        float64         `mapstructure:"temperature"`
	TimeoutSeconds     int             `mapstructure:"timeout_seconds"`
	OpenAI             ProviderAccount `mapstructure:"openai"`
	Anthropic          ProviderAccount `mapstructure:"anthropic"`
	Grok               ProviderAccount `mapstructure:"grok"`
}

// ProviderAccount holds one backend's credentials and model.
type ProviderAccount struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// SearchConfig configures the search-engine backend.
type SearchConfig struct {
	Provider   string           `mapstructure:"provider"`
	Google     GoogleConfig     `mapstructure:"google"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo"`
}

// GoogleConfig holds Custom Search credentials.
type GoogleConfig struct {
	APIKey string `mapstructure:"api_key"`
	CSEID  string `mapstructure:"cse_id"`
}

// DuckDuckGoConfig tunes the HTML search client.
type DuckDuckGoConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ScraperConfig controls headless rendering and fetch retries.
type ScraperConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	Locale              string `mapstructure:"locale"`
	NavTimeoutSeconds   int    `mapstructure:"nav_timeout_seconds"`
	MaxAttempts         int    `mapstructure:"max_attempts"`
	BackoffMultiplierMs int    `mapstructure:"backoff_multiplier_ms"`
	BackoffMinMs        int    `mapstructure:"backoff_min_ms"`
	BackoffMaxMs        int    `mapstructure:"backoff_max_ms"`
	MaxParallel         int    `mapstructure:"max_parallel"`
}

// DiscoveryConfig bounds discovery runs.
type DiscoveryConfig struct {
	MaxPages           int  `mapstructure:"max_pages"`
	MaxURLsPerProvider int  `mapstructure:"max_urls_per_provider"`
	Concurrency        int  `mapstructure:"concurrency"`
	PersistFailed      bool `mapstructure:"persist_failed"`
}

// ArchiveConfig selects where raw page HTML is kept.
type ArchiveConfig struct {
	Driver    string `mapstructure:"driver"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig holds Pub/Sub metadata for page events.
type EventsConfig struct {
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// Enabled reports whether page events should be published.
func (e EventsConfig) Enabled() bool {
	return e.PubSubTopic != ""
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	GCPProject  string `mapstructure:"gcp_project"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindProviderEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("llm.providers", []string{"openai", "anthropic", "grok"})
	v.SetDefault("llm.classifier_provider", "openai")
	v.SetDefault("llm.extraction_provider", "openai")
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("llm.openai.model", llm.DefaultOpenAIModel)
	v.SetDefault("llm.openai.base_url", llm.DefaultOpenAIBaseURL)
	v.SetDefault("llm.anthropic.model", llm.DefaultAnthropicModel)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.grok.model", llm.DefaultGrokModel)
	v.SetDefault("llm.grok.base_url", llm.DefaultGrokBaseURL)
	v.SetDefault("search.provider", search.ProviderGoogle)
	v.SetDefault("search.duckduckgo.timeout_seconds", 20)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) "+
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.locale", "en-US")
	v.SetDefault("scraper.nav_timeout_seconds", 30)
	v.SetDefault("scraper.max_attempts", 3)
	v.SetDefault("scraper.backoff_multiplier_ms", 1000)
	v.SetDefault("scraper.backoff_min_ms", 4000)
	v.SetDefault("scraper.backoff_max_ms", 10000)
	v.SetDefault("scraper.max_parallel", 4)
	v.SetDefault("discovery.max_pages", 100)
	v.SetDefault("discovery.max_urls_per_provider", 200)
	v.SetDefault("discovery.concurrency", 4)
	v.SetDefault("discovery.persist_failed", false)
	v.SetDefault("archive.driver", ArchiveNone)
	v.SetDefault("archive.local_dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("events.pubsub_project", "")
	v.SetDefault("events.pubsub_topic", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "outreach")
	v.SetDefault("tracing.gcp_project", "")
}

// bindProviderEnv lets the conventional vendor variables stand in for the
// prefixed ones.
func bindProviderEnv(v *viper.Viper) {
	bindings := map[string][]string{
		"llm.openai.api_key":    {"OUTREACH_LLM_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"llm.anthropic.api_key": {"OUTREACH_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"llm.grok.api_key":      {"OUTREACH_LLM_GROK_API_KEY", "GROK_API_KEY", "XAI_API_KEY"},
		"search.google.api_key": {"OUTREACH_SEARCH_GOOGLE_API_KEY", "GOOGLE_API_KEY"},
		"search.google.cse_id":  {"OUTREACH_SEARCH_GOOGLE_CSE_ID", "GOOGLE_CSE_ID"},
		"database.dsn":          {"OUTREACH_DATABASE_DSN", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.driver is postgres")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Database.Driver)
	}
	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("llm.providers must list at least one provider")
	}
	for _, name := range c.LLM.Providers {
		if _, err := llm.ParseKind(name); err != nil {
			return fmt.Errorf("llm.providers: %w", err)
		}
	}
	if _, err := llm.ParseKind(c.LLM.ClassifierProvider); err != nil {
		return fmt.Errorf("llm.classifier_provider: %w", err)
	}
	if _, err := llm.ParseKind(c.LLM.ExtractionProvider); err != nil {
		return fmt.Errorf("llm.extraction_provider: %w", err)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be > 0")
	}
	switch c.Search.Provider {
	case search.ProviderGoogle, search.ProviderDuckDuckGo:
	default:
		return fmt.Errorf("search.provider: %w: %q", search.ErrUnknownProvider, c.Search.Provider)
	}
	if c.Scraper.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.nav_timeout_seconds must be > 0")
	}
	if c.Scraper.MaxAttempts <= 0 {
		return fmt.Errorf("scraper.max_attempts must be > 0")
	}
	if c.Scraper.BackoffMinMs > c.Scraper.BackoffMaxMs {
		return fmt.Errorf("scraper.backoff_min_ms must be <= scraper.backoff_max_ms")
	}
	if c.Scraper.MaxParallel <= 0 {
		return fmt.Errorf("scraper.max_parallel must be > 0")
	}
	if c.Discovery.Concurrency <= 0 {
		return fmt.Errorf("discovery.concurrency must be > 0")
	}
	switch c.Archive.Driver {
	case ArchiveNone, "":
	case ArchiveLocal:
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set when archive.driver is local")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.driver is gcs")
		}
	default:
		return fmt.Errorf("archive.driver must be one of none, local, gcs; got %q", c.Archive.Driver)
	}
	if c.Events.Enabled() && c.Events.PubSubProject == "" {
		return fmt.Errorf("events.pubsub_project must be set when events.pubsub_topic is set")
	}
	return nil
}

// Providers returns the configured discovery providers in order.
func (c Config) Providers() []llm.Kind {
	kinds := make([]llm.Kind, 0, len(c.LLM.Providers))
	for _, name := range c.LLM.Providers {
		if k, err := llm.ParseKind(name); err == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// NavTimeout converts the scraper navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Scraper.NavTimeoutSeconds) * time.Second
}

// LLMTimeout converts the model call timeout into a duration.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Backoff returns the scraper retry multiplier, floor, and ceiling.
func (c Config) Backoff() (multiplier, minDelay, maxDelay time.Duration) {
	return millis(c.Scraper.BackoffMultiplierMs), millis(c.Scraper.BackoffMinMs), millis(c.Scraper.BackoffMaxMs)
}

// DuckDuckGoTimeout converts the search request timeout into a duration.
func (c Config) DuckDuckGoTimeout() time.Duration {
	return time.Duration(c.Search.DuckDuckGo.TimeoutSeconds) * time.Second
}
