// Package classifier decides whether a scraped page is genuinely about a
// product.
package classifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/metrics"
)

// MaxSnippetRunes bounds how much page text is sent to the model.
const MaxSnippetRunes = 12000

const systemPrompt = "You are a strict relevance classifier. " +
	"Decide if a Reddit page is relevant to the given product. " +
	"Relevant means the page content strongly indicates discussion about the product, " +
	"or clear user mention/usage. " +
	"If it's only coincidental text, unrelated, or ambiguous, mark not relevant."

var relevanceSchema = llm.Schema{
	Name: "page_relevance",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"relevant":   map[string]any{"type": "boolean"},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"reason":     map[string]any{"type": "string"},
		},
		"required":             []string{"relevant", "confidence", "reason"},
		"additionalProperties": false,
	},
}

// Relevance is the structured decision for one page.
type Relevance struct {
	Relevant   bool
	Confidence float64
	Reason     string
}

type relevanceReply struct {
	Relevant   *bool    `json:"relevant" validate:"required"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Reason     string   `json:"reason"`
}

// Classifier asks a non-searching model for a relevance decision.
type Classifier struct {
	provider llm.Provider
	logger   *zap.Logger
}

// New wires a Classifier to provider. The provider should be built without
// web search; the decision must rest on the supplied text alone.
func New(provider llm.Provider, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{provider: provider, logger: logger.Named("classifier")}
}

// Classify returns the decision for pageText. A reply that cannot be decoded
// into a valid decision is an error, never a default.
func (c *Classifier) Classify(ctx context.Context, product, url, pageText string) (Relevance, error) {
	req := llm.Request{
		System: systemPrompt,
		Prompt: buildPrompt(product, url, Truncate(pageText, MaxSnippetRunes)),
	}

	start := time.Now()
	var reply relevanceReply
	if err := c.provider.GenerateStructured(ctx, req, relevanceSchema, &reply); err != nil {
		return Relevance{}, fmt.Errorf("classify %s: %w", url, err)
	}
	out := Relevance{
		Relevant:   *reply.Relevant,
		Confidence: *reply.Confidence,
		Reason:     reply.Reason,
	}
	metrics.ObserveClassification(out.Relevant, time.Since(start))
	c.logger.Debug("classified page",
		zap.String("url", url),
		zap.Bool("relevant", out.Relevant),
		zap.Float64("confidence", out.Confidence),
	)
	return out, nil
}

func buildPrompt(product, url, snippet string) string {
	return fmt.Sprintf("Product: %s\nURL: %s\n\n"+
		"Classify if this Reddit page is relevant to the product.\n"+
		"Return JSON with fields: relevant (bool), confidence (0..1), reason (string).\n\n"+
		"Page text:\n%s", product, url, snippet)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
