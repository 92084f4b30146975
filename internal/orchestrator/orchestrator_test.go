package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/outreach"
	"github.com/outreachly/sourcing-engine/internal/scoring"
	"github.com/outreachly/sourcing-engine/internal/source"
)

// fakeAdapter is a minimal source.Adapter for orchestrator tests.
type fakeAdapter struct {
	id      string
	records []models.RawRecord
	err     error
	delay   time.Duration
}

func (f *fakeAdapter) SourceID() string { return f.id }
func (f *fakeAdapter) Fetch(ctx context.Context, job models.JobSpec) ([]models.RawRecord, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func rawRecord(sourceID, name string) models.RawRecord {
	return models.RawRecord{
		SourceID:  sourceID,
		FetchedAt: time.Now(),
		Payload: map[string]any{
			"name":        name,
			"headline":    "Engineer at Acme",
			"profile_url": "https://example.com/" + name,
			"skills":      []string{"go"},
		},
	}
}

func testScorer() *scoring.Scorer {
	return scoring.New(map[string]float64{
		scoring.DimEducation: 0.20, scoring.DimCareerTrajectory: 0.20,
		scoring.DimCompanyRelevance: 0.15, scoring.DimExperienceMatch: 0.25,
		scoring.DimLocationMatch: 0.10, scoring.DimTenure: 0.10,
	}, nil, nil)
}

func testJob() models.JobSpec {
	return models.JobSpec{ID: "job-1", MaxCandidates: 10, RequiredSkills: []string{"go"}}
}

// Scenario D: one of four sources raises a transport error on every
// call. The job completes with the other three sources' data;
// partial_failures contains exactly one entry with that source_id and
// reason "transport".
func TestRun_PartialFailureContainment(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{id: "primary", records: []models.RawRecord{rawRecord("primary", "alice")}},
		&fakeAdapter{id: "codehost", records: []models.RawRecord{rawRecord("codehost", "bob")}},
		&fakeAdapter{id: "microblog", records: []models.RawRecord{rawRecord("microblog", "carol")}},
		&fakeAdapter{id: "personalsite", err: &source.TransportErr{Err: errors.New("connection refused")}},
	}
	o := New(adapters, testScorer(), nil, config.OrchestratorConfig{JobTimeoutSec: 10}, nil)

	result, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, 3, result.CandidatesFound)
	require.Len(t, result.PartialFailures, 1)
	assert.Equal(t, "personalsite", result.PartialFailures[0].SourceID)
	assert.Equal(t, "transport", result.PartialFailures[0].Reason)
}

func TestRun_RejectsInvalidJobSpec(t *testing.T) {
	o := New(nil, testScorer(), nil, config.OrchestratorConfig{}, nil)
	_, err := o.Run(context.Background(), models.JobSpec{})
	assert.Error(t, err)
}

func TestRun_NoSourceFailuresYieldsEmptyPartialFailures(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{id: "primary", records: []models.RawRecord{rawRecord("primary", "alice")}},
	}
	o := New(adapters, testScorer(), nil, config.OrchestratorConfig{}, nil)
	result, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Empty(t, result.PartialFailures)
}

// Cancellation liveness: after a cancel signal, the engine returns
// within the grace bound.
func TestRun_CancellationReturnsWithinGraceBound(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{id: "primary", delay: 5 * time.Second},
	}
	o := New(adapters, testScorer(), nil, config.OrchestratorConfig{JobTimeoutSec: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := o.Run(ctx, testJob())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 2*time.Second)
	assert.NotEmpty(t, result.PartialFailures)
}

func TestRunBatch_RunsAllJobsIndependently(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{id: "primary", records: []models.RawRecord{rawRecord("primary", "alice")}},
	}
	o := New(adapters, testScorer(), nil, config.OrchestratorConfig{GlobalMaxInFlight: 2}, nil)

	jobs := []models.JobSpec{
		{ID: "job-a", MaxCandidates: 5},
		{ID: "job-b", MaxCandidates: 5},
		{}, // invalid
	}
	results, errs := o.RunBatch(context.Background(), jobs)
	require.Len(t, results, 3)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Error(t, errs[2])
	assert.Nil(t, results[2])
}

func TestRun_IncludeOutreachPopulatesMessages(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{id: "primary", records: []models.RawRecord{rawRecord("primary", "alice")}},
	}
	gen := outreach.New(nil, nil, 0)
	o := New(adapters, testScorer(), gen, config.OrchestratorConfig{OutreachConcurrency: 2}, nil)

	job := testJob()
	job.IncludeOutreach = true
	result, err := o.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Len(t, result.Messages, len(result.TopCandidates))
}
