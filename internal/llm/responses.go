package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	responsesPath      = "/v1/responses"
	retryInitialDelay  = time.Second
	retryMaxDelay      = 10 * time.Second
	defaultHTTPRetries = 2
)

// responsesProvider talks to an OpenAI-compatible Responses API. xAI's
// Grok endpoint speaks the same protocol, so both kinds share it.
type responsesProvider struct {
	name        string
	creds       Credentials
	maxTokens   int
	temperature float64
	webSearch   bool
	maxRetries  int
	httpClient  *http.Client
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func newResponsesProvider(name string, creds Credentials, cfg Config, webSearch bool) *responsesProvider {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultHTTPRetries
	}
	return &responsesProvider{
		name:        name,
		creds:       creds,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		webSearch:   webSearch,
		maxRetries:  retries,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger.Named(name),
		sleep:       sleepContext,
	}
}

func (p *responsesProvider) Name() string           { return p.name }
func (p *responsesProvider) WebSearchEnabled() bool { return p.webSearch }

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesTool struct {
	Type string `json:"type"`
}

type responsesText struct {
	Format map[string]any `json:"format,omitempty"`
}

type responsesRequest struct {
	Model           string           `json:"model"`
	Input           []responsesInput `json:"input"`
	Tools           []responsesTool  `json:"tools,omitempty"`
	Text            *responsesText   `json:"text,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *responsesProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	return p.generate(ctx, p.buildRequest(req, nil))
}

func (p *responsesProvider) GenerateStructured(ctx context.Context, req Request, schema Schema, out any) error {
	if schema.Name == "" || schema.Definition == nil {
		return errors.New("schema name and definition are required")
	}
	text, err := p.generate(ctx, p.buildRequest(req, &schema))
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}

func (p *responsesProvider) buildRequest(req Request, schema *Schema) responsesRequest {
	body := responsesRequest{
		Model:           p.creds.Model,
		MaxOutputTokens: p.maxTokens,
	}
	if req.System != "" {
		body.Input = append(body.Input, responsesInput{Role: "system", Content: req.System})
	}
	body.Input = append(body.Input, responsesInput{Role: "user", Content: req.Prompt})
	if p.temperature > 0 {
		t := p.temperature
		body.Temperature = &t
	}
	if p.webSearch {
		body.Tools = []responsesTool{{Type: "web_search"}}
	}
	if schema != nil {
		body.Text = &responsesText{Format: map[string]any{
			"type":   "json_schema",
			"name":   schema.Name,
			"schema": schema.Definition,
			"strict": true,
		}}
	}
	return body
}

func (p *responsesProvider) generate(ctx context.Context, body responsesRequest) (string, error) {
	var resp responsesResponse
	if err := p.do(ctx, body, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("%s: %s", p.name, resp.Error.Message)
	}
	text, refusal := extractOutputText(resp)
	if refusal != "" {
		return "", fmt.Errorf("%s: model refused: %s", p.name, refusal)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: no output_text in response", p.name)
	}
	return text, nil
}

func extractOutputText(resp responsesResponse) (string, string) {
	var out, refusal strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				refusal.WriteString(c.Refusal)
			}
		}
	}
	return out.String(), refusal.String()
}

type httpStatusError struct {
	provider   string
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("%s http %d: %s", e.provider, e.StatusCode, body)
}

func (p *responsesProvider) do(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	backoff := retryInitialDelay
	for attempt := 0; ; attempt++ {
		raw, err := p.doOnce(ctx, payload)
		if err == nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("%s: decode response: %w", p.name, err)
			}
			return nil
		}
		if !isRetryable(err) || attempt >= p.maxRetries {
			return err
		}
		p.logger.Warn("request failed; retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := p.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > retryMaxDelay {
			backoff = retryMaxDelay
		}
	}
}

func (p *responsesProvider) doOnce(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.creds.BaseURL+responsesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", p.name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read below

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", p.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{provider: p.name, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
