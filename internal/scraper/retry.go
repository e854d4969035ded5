package scraper

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// RetryPolicy implements randomized exponential backoff: the wait before
// attempt n+1 is drawn uniformly from [min, clamp(multiplier*2^(n-1), min, max)].
type RetryPolicy struct {
	maxAttempts int
	multiplier  time.Duration
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewRetryPolicy builds a policy; zero values fall back to 3 attempts with a
// 1s multiplier bounded to [4s, 10s].
func NewRetryPolicy(maxAttempts int, multiplier, minDelay, maxDelay time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if multiplier <= 0 {
		multiplier = time.Second
	}
	if minDelay <= 0 {
		minDelay = 4 * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		multiplier:  multiplier,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
	}
}

// MaxAttempts reports the total attempt budget.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether another attempt is allowed after a failed one.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < p.maxAttempts
}

// Backoff returns the wait duration after the given (1-based) attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	high := float64(p.multiplier) * math.Pow(2, float64(attempt-1))
	if high > float64(p.maxDelay) {
		high = float64(p.maxDelay)
	}
	if high < float64(p.minDelay) {
		high = float64(p.minDelay)
	}
	return p.minDelay + p.randomJitter(time.Duration(high)-p.minDelay)
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
