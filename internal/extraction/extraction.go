// Package extraction identifies users who demonstrably use a product from
// saved page content and stores them against the page.
package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/llm"
	"github.com/JakeFAU/reddit-outreach/internal/logging"
	"github.com/JakeFAU/reddit-outreach/internal/metrics"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

// MaxContentRunes bounds the page content sent to the model.
const MaxContentRunes = 10000

// TruncationMarker is appended to content cut at MaxContentRunes.
const TruncationMarker = "... [truncated]"

const systemPrompt = "You are a helpful assistant that extracts Reddit usernames from content. " +
	"You identify users who actually use products based on their comments and posts. " +
	"Always respond with valid JSON."

// Extractor runs the extraction prompt and persists the result.
type Extractor struct {
	provider llm.Provider
	users    outreach.UserStore
	logger   *zap.Logger
}

// New builds an Extractor. users may be nil when only Extract is needed.
func New(provider llm.Provider, users outreach.UserStore, logger *zap.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		users:    users,
		logger:   logging.Named(logger, "extraction"),
	}
}

// Extract asks the model for users of product in content.
func (e *Extractor) Extract(ctx context.Context, product, content string) ([]outreach.UserCandidate, error) {
	reply, err := e.provider.GenerateText(ctx, llm.Request{
		System: systemPrompt,
		Prompt: buildPrompt(product, TruncateContent(content)),
	})
	if err != nil {
		return nil, fmt.Errorf("extract users: %w", err)
	}
	users := ParseResponse(reply)
	e.logger.Debug("parsed extraction reply",
		zap.String("product", product),
		zap.Int("users", len(users)),
	)
	return users, nil
}

// ExtractAndStore extracts users from page and upserts them, returning how
// many users were newly linked to the page.
func (e *Extractor) ExtractAndStore(ctx context.Context, product string, page outreach.Page) (int, error) {
	if e.users == nil {
		return 0, fmt.Errorf("extract users: no user store configured")
	}
	content := page.Content()
	if content == "" {
		e.logger.Warn("no content available for page", zap.String("url", page.URL))
		return 0, nil
	}
	users, err := e.Extract(ctx, product, content)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		e.logger.Info("no users extracted", zap.String("url", page.URL))
		return 0, nil
	}
	created, err := e.users.UpsertUsers(ctx, page.ID, users)
	if err != nil {
		return created, fmt.Errorf("store users for %s: %w", page.URL, err)
	}
	metrics.ObserveUsersExtracted(created)
	e.logger.Info("extracted users",
		zap.String("product", product),
		zap.String("url", page.URL),
		zap.Int("found", len(users)),
		zap.Int("created", created),
	)
	return created, nil
}

// TruncateContent cuts content to MaxContentRunes runes plus the marker.
func TruncateContent(content string) string {
	count := 0
	for i := range content {
		if count == MaxContentRunes {
			return content[:i] + TruncationMarker
		}
		count++
	}
	return content
}

func buildPrompt(product, content string) string {
	return fmt.Sprintf(`Analyze the following Reddit page content and extract Reddit usernames of users who actually use or have used the product "%s".

For each user, provide:
1. Their Reddit username
2. Their profile URL (format: https://reddit.com/user/username)
3. The specific text/substring from the page that demonstrates they actually use the product

Only include users who clearly demonstrate actual usage of the product (not just mentioning it).

Format your response as JSON array with this structure:
[
  {
    "username": "username_here",
    "profile_url": "https://reddit.com/user/username_here",
    "reason_text": "exact quote or substring showing product usage"
  }
]

Product: %s

Reddit Page Content:
%s`, product, product, content)
}
