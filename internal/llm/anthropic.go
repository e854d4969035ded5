package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	webSearch   bool
}

func newAnthropicProvider(creds Credentials, cfg Config, webSearch bool) *anthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(creds.APIKey),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if creds.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(creds.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &anthropicProvider{
		client:      anthropic.NewClient(opts...),
		model:       creds.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		webSearch:   webSearch,
	}
}

func (p *anthropicProvider) Name() string           { return string(KindAnthropic) }
func (p *anthropicProvider) WebSearchEnabled() bool { return p.webSearch }

func (p *anthropicProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	return p.generate(ctx, req.System, req.Prompt)
}

// GenerateStructured appends the schema to the system prompt; Messages has
// no native JSON-schema mode, so validation happens on decode.
func (p *anthropicProvider) GenerateStructured(ctx context.Context, req Request, schema Schema, out any) error {
	if schema.Definition == nil {
		return errors.New("schema definition is required")
	}
	text, err := p.generate(ctx, req.System+schemaInstruction(schema), req.Prompt)
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}

func (p *anthropicProvider) generate(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}
	if p.webSearch {
		params.Tools = []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(webSearchMaxUses),
			},
		}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", errors.New("anthropic: no text in response")
	}
	return out.String(), nil
}
