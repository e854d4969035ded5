// Package llm wraps the language-model backends used for discovery,
// classification, and extraction behind one small Provider interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrMissingCredentials is returned when a provider has no API key.
	ErrMissingCredentials = errors.New("missing api key")
	// ErrUnknownProvider is returned for provider names outside the closed set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidStructuredOutput is returned when a model reply does not
	// decode into the requested shape.
	ErrInvalidStructuredOutput = errors.New("invalid structured output")
)

// Kind names one of the supported backends.
type Kind string

// Supported provider kinds.
const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGrok      Kind = "grok"
)

// Kinds lists every supported provider in default discovery order.
func Kinds() []Kind {
	return []Kind{KindOpenAI, KindAnthropic, KindGrok}
}

// ParseKind maps a configured name onto a Kind.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case KindOpenAI, KindAnthropic, KindGrok:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Request is one prompt/system-prompt pair.
type Request struct {
	System string
	Prompt string
}

// Schema describes the JSON object a structured call must return.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Provider is a configured language-model backend. Web search is fixed at
// construction time.
type Provider interface {
	Name() string
	WebSearchEnabled() bool
	GenerateText(ctx context.Context, req Request) (string, error)
	// GenerateStructured decodes the model reply into out (a pointer to a
	// struct with json and validate tags).
	GenerateStructured(ctx context.Context, req Request, schema Schema, out any) error
}

// Credentials identifies one backend account and model.
type Credentials struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config carries every option the provider constructors read.
type Config struct {
	OpenAI      Credentials
	Anthropic   Credentials
	Grok        Credentials
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Default models and endpoints.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultOpenAIBaseURL  = "https://api.openai.com"
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultGrokModel      = "grok-4"
	DefaultGrokBaseURL    = "https://api.x.ai"
	defaultMaxTokens      = 2000
	defaultTimeout        = 120 * time.Second
	webSearchMaxUses      = 5
)

// Factory builds providers from a shared Config.
type Factory interface {
	New(kind Kind, webSearch bool) (Provider, error)
}

// ConfigFactory is the Factory backed by real HTTP/SDK clients.
type ConfigFactory struct {
	cfg Config
}

// NewFactory returns a Factory for cfg.
func NewFactory(cfg Config) *ConfigFactory {
	return &ConfigFactory{cfg: cfg}
}

// New constructs the provider for kind. Missing credentials are reported as
// ErrMissingCredentials so callers can skip the provider.
func (f *ConfigFactory) New(kind Kind, webSearch bool) (Provider, error) {
	cfg := f.cfg
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	switch kind {
	case KindOpenAI:
		creds := withDefaults(cfg.OpenAI, DefaultOpenAIModel, DefaultOpenAIBaseURL)
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingCredentials)
		}
		return newResponsesProvider(string(kind), creds, cfg, webSearch), nil
	case KindGrok:
		creds := withDefaults(cfg.Grok, DefaultGrokModel, DefaultGrokBaseURL)
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingCredentials)
		}
		return newResponsesProvider(string(kind), creds, cfg, webSearch), nil
	case KindAnthropic:
		creds := withDefaults(cfg.Anthropic, DefaultAnthropicModel, "")
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingCredentials)
		}
		return newAnthropicProvider(creds, cfg, webSearch), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}
}

func withDefaults(c Credentials, model, baseURL string) Credentials {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if strings.TrimSpace(c.Model) == "" {
		c.Model = model
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}
