// Package ratelimit implements the engine's rate limiter (spec.md §4.1):
// token-bucket pacing per source_id plus a global bucket, with explicit
// backpressure handling via ReportThrottle. The token-bucket primitive
// is golang.org/x/time/rate, the same primitive used elsewhere in the
// example pack for outbound API client pacing; the backoff-strategy,
// jitter, and report_throttle contract are layered on top since
// x/time/rate has no notion of externally-signalled backpressure.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SourceConfig configures one source's bucket and its backoff policy.
type SourceConfig struct {
	RequestsPerWindow int
	WindowSeconds     int
	Strategy          Strategy
	BaseDelay         time.Duration
	JitterPct         float64
	MaxDelay          time.Duration
}

// DefaultSourceConfig returns sane defaults: exponential backoff with
// 10% jitter, capped at 2 minutes.
func DefaultSourceConfig(requestsPerWindow, windowSeconds int) SourceConfig {
	return SourceConfig{
		RequestsPerWindow: requestsPerWindow,
		WindowSeconds:     windowSeconds,
		Strategy:          StrategyExponential,
		BaseDelay:         time.Second,
		JitterPct:         0.10,
		MaxDelay:          2 * time.Minute,
	}
}

type sourceBucket struct {
	limiter      *rate.Limiter
	cfg          SourceConfig
	mu           sync.Mutex
	throttledTil time.Time
	failureCount int
	unavailable  bool
}

// Limiter enforces per-source and global request pacing (C1).
type Limiter struct {
	mu      sync.RWMutex
	sources map[string]*sourceBucket
	global  *rate.Limiter
}

// Option configures a Limiter at construction.
type Option func(*Limiter)

// WithGlobalBucket sets the global token bucket shared by all sources.
func WithGlobalBucket(requestsPerSecond float64, burst int) Option {
	return func(l *Limiter) {
		l.global = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// New creates a Limiter. By default the global bucket is effectively
// unbounded; call WithGlobalBucket to cap total in-flight pacing across
// all sources, per the engine's global_max_in_flight setting.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		sources: make(map[string]*sourceBucket),
		global:  rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConfigureSource registers or replaces the bucket configuration for a
// source_id. Refill rule (spec.md §4.1): tokens accrue continuously at
// rate N/W up to capacity N.
func (l *Limiter) ConfigureSource(sourceID string, cfg SourceConfig) {
	refillPerSecond := float64(cfg.RequestsPerWindow) / float64(cfg.WindowSeconds)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[sourceID] = &sourceBucket{
		limiter: rate.NewLimiter(rate.Limit(refillPerSecond), cfg.RequestsPerWindow),
		cfg:     cfg,
	}
}

func (l *Limiter) bucket(sourceID string) *sourceBucket {
	l.mu.RLock()
	b, ok := l.sources[sourceID]
	l.mu.RUnlock()
	if ok {
		return b
	}
	// Unconfigured sources get a generous default so callers never
	// deadlock on a typo'd source_id; ConfigureSource should always be
	// called during orchestrator construction for known sources.
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.sources[sourceID]; ok {
		return b
	}
	cfg := DefaultSourceConfig(60, 60)
	b = &sourceBucket{limiter: rate.NewLimiter(rate.Limit(1), 60), cfg: cfg}
	l.sources[sourceID] = b
	return b
}

// Acquire blocks cooperatively until a token is available for sourceID,
// honoring any active throttle suspension first, then the source's
// bucket, then the global bucket. It never fails except when ctx is
// cancelled or its deadline elapses (spec.md §4.1: "it never fails, but
// may suspend for a bounded time").
func (l *Limiter) Acquire(ctx context.Context, sourceID string) error {
	b := l.bucket(sourceID)

	b.mu.Lock()
	wait := time.Until(b.throttledTil)
	hadActiveThrottle := wait > 0
	b.mu.Unlock()

	if hadActiveThrottle {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := l.global.Wait(ctx); err != nil {
		return err
	}

	if !hadActiveThrottle {
		b.mu.Lock()
		if b.failureCount > 0 {
			b.failureCount--
		}
		b.unavailable = false
		b.mu.Unlock()
	}
	return nil
}

// ReportThrottle records explicit backpressure from a source (e.g. an
// HTTP 429). If retryAfter > 0, acquisitions against that source are
// suspended for exactly that duration. Otherwise a backoff is computed
// from the source's configured strategy and its failure count,
// jittered, and clamped to the configured maximum.
func (l *Limiter) ReportThrottle(sourceID string, retryAfter time.Duration) {
	b := l.bucket(sourceID)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	var delay time.Duration
	if retryAfter > 0 {
		delay = retryAfter
	} else {
		delay = backoffDelay(b.cfg.Strategy, b.cfg.BaseDelay, b.failureCount)
		delay = withJitter(delay, b.cfg.JitterPct, b.cfg.MaxDelay)
	}
	b.throttledTil = time.Now().Add(delay)
}

// MarkUnavailable flags a source as unavailable for health reporting,
// without affecting its throttle/backoff state. Cleared on the next
// successful Acquire.
func (l *Limiter) MarkUnavailable(sourceID string) {
	b := l.bucket(sourceID)
	b.mu.Lock()
	b.unavailable = true
	b.mu.Unlock()
}

// Status reports the rate limiter's view of a source for the health
// endpoint: "ok", "throttled", or "unavailable" (spec.md §6).
func (l *Limiter) Status(sourceID string) string {
	b := l.bucket(sourceID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Now().Before(b.throttledTil) {
		return "throttled"
	}
	if b.unavailable {
		return "unavailable"
	}
	return "ok"
}
