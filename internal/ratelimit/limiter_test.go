package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario B, with the window compressed: primary source at 2 req/1s,
// 4 calls issued. Pure pacing (no throttle reports) must make the 3rd
// and 4th calls wait.
func TestLimiter_RateConformance(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{
		RequestsPerWindow: 2,
		WindowSeconds:     1, // compressed window for a fast test
		Strategy:          StrategyFixed,
		BaseDelay:         10 * time.Millisecond,
		JitterPct:         0,
		MaxDelay:          time.Second,
	})

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Acquire(ctx, "primary"))
	}
	elapsed := time.Since(start)

	// Burst capacity is 2; the 3rd and 4th acquisitions must each wait
	// roughly half the window for a token to refill.
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}

// Scenario C, with the delay compressed: upstream 429 with
// retry_after=150ms. Acquire after ReportThrottle must wait at least
// that long.
func TestLimiter_ReportThrottle_HonorsRetryAfter(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{
		RequestsPerWindow: 100,
		WindowSeconds:     60,
		Strategy:          StrategyFixed,
		BaseDelay:         time.Second,
	})

	l.ReportThrottle("primary", 150*time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "primary"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestLimiter_ReportThrottle_BackoffGrowsWithFailureCount(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{
		RequestsPerWindow: 100,
		WindowSeconds:     60,
		Strategy:          StrategyExponential,
		BaseDelay:         20 * time.Millisecond,
		MaxDelay:          10 * time.Second,
	})

	l.ReportThrottle("primary", 0)
	first := time.Until(l.bucket("primary").throttledTil)

	l.ReportThrottle("primary", 0)
	second := time.Until(l.bucket("primary").throttledTil)

	assert.Greater(t, second, first)
}

func TestLimiter_FailureCountDecreasesOnCleanAcquire(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{
		RequestsPerWindow: 1000,
		WindowSeconds:     60,
		Strategy:          StrategyFixed,
		BaseDelay:         time.Millisecond,
	})

	l.ReportThrottle("primary", time.Millisecond)
	time.Sleep(5 * time.Millisecond) // let the throttle lapse so the acquire is clean
	require.NoError(t, l.Acquire(context.Background(), "primary"))

	b := l.bucket("primary")
	b.mu.Lock()
	fc := b.failureCount
	b.mu.Unlock()
	assert.Equal(t, 0, fc)
}

func TestLimiter_Acquire_RespectsContextCancellation(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{RequestsPerWindow: 1, WindowSeconds: 60})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Acquire(ctx, "primary")) // drains the single token
	cancel()

	err := l.Acquire(ctx, "primary")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_Status(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{RequestsPerWindow: 10, WindowSeconds: 60})
	assert.Equal(t, "ok", l.Status("primary"))

	l.ReportThrottle("primary", time.Hour)
	assert.Equal(t, "throttled", l.Status("primary"))
}

func TestLimiter_ConcurrentAcquire_NoPanic(t *testing.T) {
	l := New()
	l.ConfigureSource("primary", SourceConfig{RequestsPerWindow: 50, WindowSeconds: 1})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = l.Acquire(ctx, "primary")
		}()
	}
	wg.Wait()
}
