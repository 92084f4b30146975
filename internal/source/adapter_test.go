package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

func testBase(sourceID string) base {
	l := ratelimit.New()
	l.ConfigureSource(sourceID, ratelimit.SourceConfig{RequestsPerWindow: 1000, WindowSeconds: 60})
	return newBase(sourceID, cache.New(0), l, config.SourceConfig{BaseURL: "https://example.com"}, nil)
}

func sampleJob() models.JobSpec {
	return models.JobSpec{ID: "job-1", RequiredSkills: []string{"go"}, MaxCandidates: 5}
}

func TestResilientFetch_DemoModeReturnsSyntheticRecords(t *testing.T) {
	b := testBase("primary")
	b.cfg.DemoMode = true

	records, err := resilientFetch(context.Background(), b, sampleJob(), nil, func(j models.JobSpec) []map[string]any {
		return demoPayloadsFor("primary", j)
	})
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, r := range records {
		assert.True(t, r.Synthetic)
		assert.Equal(t, "primary", r.SourceID)
	}
}

func TestResilientFetch_CacheHitSkipsFetch(t *testing.T) {
	b := testBase("primary")
	calls := 0
	fetch := func(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
		calls++
		return []map[string]any{{"name": "Jane"}}, nil
	}

	_, err := resilientFetch(context.Background(), b, sampleJob(), fetch, nil)
	require.NoError(t, err)
	_, err = resilientFetch(context.Background(), b, sampleJob(), fetch, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

// Scenario C, with the delay compressed: upstream 429 with
// retry_after=150ms. Adapter waits at least that long, then retries and
// succeeds.
func TestResilientFetch_RetriesAfterThrottleThenSucceeds(t *testing.T) {
	b := testBase("primary")
	attempts := 0
	fetch := func(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
		attempts++
		if attempts == 1 {
			return nil, &ThrottleErr{RetryAfter: 150 * time.Millisecond}
		}
		return []map[string]any{{"name": "Jane"}}, nil
	}

	start := time.Now()
	records, err := resilientFetch(context.Background(), b, sampleJob(), fetch, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Equal(t, 2, attempts)
}

// Scenario D: a source raises a transport error on every call. The
// adapter returns a TransportErr (surfaced by the orchestrator as
// partial_failures reason "transport"), never a fatal panic/job abort.
func TestResilientFetch_TransportErrorWrapsAsTransportErr(t *testing.T) {
	b := testBase("codehost")
	fetch := func(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
		return nil, errors.New("connection refused")
	}

	_, err := resilientFetch(context.Background(), b, sampleJob(), fetch, nil)
	require.Error(t, err)
	var transportErr *TransportErr
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "transport", err.Error())
}

func TestResilientFetch_TagsRecordsWithSourceIDAndFetchedAt(t *testing.T) {
	b := testBase("primary")
	fetch := func(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
		return []map[string]any{{"name": "Jane"}, {"name": "Bob"}}, nil
	}
	records, err := resilientFetch(context.Background(), b, sampleJob(), fetch, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "primary", r.SourceID)
		assert.False(t, r.FetchedAt.IsZero())
		assert.False(t, r.Synthetic)
	}
}

func TestQueryFingerprint_StableForSameInputs(t *testing.T) {
	j1 := models.JobSpec{RequiredSkills: []string{"go", "python"}}
	j2 := models.JobSpec{RequiredSkills: []string{"go", "python"}}
	assert.Equal(t, queryFingerprint(j1), queryFingerprint(j2))
}

func TestCacheKey_FollowsDocumentedLayout(t *testing.T) {
	key := cacheKey("primary", sampleJob())
	assert.Contains(t, key, "src:primary:q:")
}
