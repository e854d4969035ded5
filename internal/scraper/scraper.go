// Package scraper fetches rendered pages with bounded retries and judges
// whether the result is usable content.
package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/metrics"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/redditurl"
)

// Scraper wraps a Renderer with the retry policy and mirror-host rewrite.
type Scraper struct {
	renderer outreach.Renderer
	policy   *RetryPolicy
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithSleep overrides how the scraper waits between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scraper) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// New constructs a Scraper. A nil policy uses the default backoff.
func New(renderer outreach.Renderer, policy *RetryPolicy, logger *zap.Logger, opts ...Option) *Scraper {
	if policy == nil {
		policy = NewRetryPolicy(0, 0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{
		renderer: renderer,
		policy:   policy,
		logger:   logger.Named("scraper"),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchHTML renders url through the mirror host. Failures are retried per
// the policy; once the budget is spent (or ctx ends) it returns "".
func (s *Scraper) FetchHTML(ctx context.Context, url string) string {
	target := redditurl.MirrorURL(url)
	for attempt := 1; ; attempt++ {
		html, err := s.render(ctx, target)
		metrics.ObserveFetchAttempt(err == nil)
		if err == nil {
			return html
		}
		if !s.policy.ShouldRetry(err, attempt) {
			s.logger.Warn("fetch failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return ""
		}
		wait := s.policy.Backoff(attempt)
		s.logger.Debug("fetch attempt failed; retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := s.sleep(ctx, wait); err != nil {
			return ""
		}
	}
}

// render converts panics from the browser layer into errors so that every
// failure is retryable.
func (s *Scraper) render(ctx context.Context, url string) (html string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return s.renderer.Render(ctx, url)
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
