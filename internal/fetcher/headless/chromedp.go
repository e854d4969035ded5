// Package headless renders pages in headless Chrome via chromedp.
package headless

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	defaultNavTimeout = 30 * time.Second
	defaultIdleWindow = 500 * time.Millisecond
	idlePollInterval  = 100 * time.Millisecond
)

// Config controls the behavior of the headless renderer.
type Config struct {
	MaxParallel       int
	UserAgent         string
	Locale            string
	NavigationTimeout time.Duration
	// IdleWindow is how long the page must have no in-flight requests
	// before it counts as network-idle.
	IdleWindow time.Duration
}

// Renderer implements outreach.Renderer using chromedp and headless Chrome.
// Each Render call uses a fresh browser tab; no session state is shared.
type Renderer struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless renderer backed by chromedp.
func NewChromedp(cfg Config) (*Renderer, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Locale))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *Renderer) Close() {
	r.allocCancel()
}

// Render navigates to url, waits for the network to go idle, and returns the
// rendered DOM. The whole call is bounded by the navigation timeout.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	if err := r.acquire(ctx); err != nil {
		return "", err
	}
	defer r.release()

	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.navTimeout())
	defer cancel()

	// Propagate caller cancellation into the browser tab.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tracker := newIdleTracker(time.Now)
	chromedp.ListenTarget(taskCtx, tracker.handle)

	var html string
	actions := []chromedp.Action{
		r.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		waitNetworkIdle(tracker, r.idleWindow()),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (r *Renderer) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if r.cfg.UserAgent != "" {
			override := emulation.SetUserAgentOverride(r.cfg.UserAgent)
			if r.cfg.Locale != "" {
				override = override.WithAcceptLanguage(r.cfg.Locale)
			}
			if err := override.Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if r.cfg.Locale != "" {
			if err := emulation.SetLocaleOverride().WithLocale(r.cfg.Locale).Do(ctx); err != nil {
				return fmt.Errorf("set locale: %w", err)
			}
		}
		return nil
	})
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (r *Renderer) release() {
	if r.limiter == nil {
		return
	}
	select {
	case <-r.limiter:
	default:
	}
}

func (r *Renderer) navTimeout() time.Duration {
	if r.cfg.NavigationTimeout > 0 {
		return r.cfg.NavigationTimeout
	}
	return defaultNavTimeout
}

func (r *Renderer) idleWindow() time.Duration {
	if r.cfg.IdleWindow > 0 {
		return r.cfg.IdleWindow
	}
	return defaultIdleWindow
}

// idleTracker counts in-flight network requests for one tab.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
	now      func() time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	return &idleTracker{
		inflight: make(map[network.RequestID]struct{}),
		last:     now(),
		now:      now,
	}
}

func (t *idleTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.last = t.now()
}

func (t *idleTracker) idleFor(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.last) >= window
}

func waitNetworkIdle(tracker *idleTracker, window time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(idlePollInterval)
		defer ticker.Stop()
		for {
			if tracker.idleFor(window) {
				return nil
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("wait for network idle: %w", ctx.Err())
			case <-ticker.C:
			}
		}
	})
}
