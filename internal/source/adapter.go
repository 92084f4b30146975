// Package source implements the Source Adapters (C3, spec.md §4.3):
// given a JobSpec, each adapter yields a finite sequence of RawRecord
// for its source, consulting the shared cache, pacing itself against
// the shared rate limiter, retrying on explicit backpressure, and
// never raising a fatal error past its own boundary.
package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

// Adapter yields RawRecords for one source against a JobSpec.
type Adapter interface {
	SourceID() string
	Fetch(ctx context.Context, job models.JobSpec) ([]models.RawRecord, error)
}

// cacheTTL is how long a successful fetch's records are cached under
// their query fingerprint.
const cacheTTL = 15 * time.Minute

// ThrottleErr signals explicit backpressure (e.g. HTTP 429) from a
// source, optionally carrying the upstream's requested retry_after.
type ThrottleErr struct {
	RetryAfter time.Duration
}

func (e *ThrottleErr) Error() string { return "source: throttled" }

// TransportErr wraps a connectivity-level failure, the reason string
// surfaced verbatim in JobResult.PartialFailures (spec.md scenario D).
type TransportErr struct {
	Err error
}

func (e *TransportErr) Error() string { return "transport" }
func (e *TransportErr) Unwrap() error { return e.Err }

// base bundles the plumbing shared by every adapter: cache, rate
// limiter, per-source config, and a logger.
type base struct {
	sourceID string
	cache    *cache.Cache
	limiter  *ratelimit.Limiter
	cfg      config.SourceConfig
	log      *slog.Logger
}

func newBase(sourceID string, c *cache.Cache, l *ratelimit.Limiter, cfg config.SourceConfig, log *slog.Logger) base {
	if log == nil {
		log = slog.Default()
	}
	return base{sourceID: sourceID, cache: c, limiter: l, cfg: cfg, log: log}
}

// queryFingerprint builds a stable cache-key fragment from the parts of
// a JobSpec that influence what an adapter would fetch.
func queryFingerprint(job models.JobSpec) string {
	parts := []string{
		strings.Join(job.RequiredSkills, ","),
		strings.Join(job.PreferredSkills, ","),
		strings.Join(job.LocationPreferences, ","),
		string(job.SeniorityHint),
	}
	h := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

// cacheKey follows the persisted-state layout from spec.md §5:
// "src:<source_id>:q:<hash>".
func cacheKey(sourceID string, job models.JobSpec) string {
	return fmt.Sprintf("src:%s:q:%s", sourceID, queryFingerprint(job))
}

// fetchFn performs one source-specific attempt at retrieving raw
// profile payloads. It returns *ThrottleErr for explicit backpressure
// and any other error for a transport-level failure.
type fetchFn func(ctx context.Context, job models.JobSpec) ([]map[string]any, error)

// demoFn produces deterministic synthetic payloads for demo mode.
type demoFn func(job models.JobSpec) []map[string]any

// resilientFetch implements the common adapter contract: cache
// consult, rate-limit acquire, throttle/retry handling, record
// tagging, and cache population. maxRetries follows spec.md's default
// of 3 when cfg.DemoMode is false.
func resilientFetch(ctx context.Context, b base, job models.JobSpec, fetch fetchFn, demo demoFn) ([]models.RawRecord, error) {
	key := cacheKey(b.sourceID, job)

	if cached, ok := b.cache.Get(key); ok {
		if records, ok := cached.([]models.RawRecord); ok {
			return records, nil
		}
	}

	if b.cfg.DemoMode || (b.cfg.BaseURL == "" && demo != nil) {
		records := tagRecords(b.sourceID, demo(job), true)
		b.cache.Put(key, records, cacheTTL)
		return records, nil
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := b.limiter.Acquire(ctx, b.sourceID); err != nil {
			return nil, err
		}

		payloads, err := fetch(ctx, job)
		if err == nil {
			records := tagRecords(b.sourceID, payloads, false)
			b.cache.Put(key, records, cacheTTL)
			return records, nil
		}

		var throttle *ThrottleErr
		if errors.As(err, &throttle) {
			b.limiter.ReportThrottle(b.sourceID, throttle.RetryAfter)
			lastErr = err
			continue
		}

		b.limiter.MarkUnavailable(b.sourceID)
		return nil, &TransportErr{Err: err}
	}
	return nil, lastErr
}

// parseRetryAfterHeader reads a standard Retry-After header (seconds
// form) off an *http.Response, defaulting to zero (caller falls back
// to its own backoff strategy) when absent or unparseable.
func parseRetryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func tagRecords(sourceID string, payloads []map[string]any, synthetic bool) []models.RawRecord {
	now := time.Now()
	out := make([]models.RawRecord, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, models.RawRecord{
			SourceID:  sourceID,
			FetchedAt: now,
			Synthetic: synthetic,
			Payload:   p,
		})
	}
	return out
}
