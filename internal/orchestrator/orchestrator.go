// Package orchestrator implements the Orchestrator (C8, spec.md
// §4.8): drives one job through Discovering → Normalizing → Merging →
// Scoring → Ranking → Generating → Completed, fanning out to Source
// Adapters concurrently, containing partial failures, and honoring
// cancellation with a bounded grace period.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/engineerr"
	"github.com/outreachly/sourcing-engine/internal/merge"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/normalize"
	"github.com/outreachly/sourcing-engine/internal/outreach"
	"github.com/outreachly/sourcing-engine/internal/scoring"
	"github.com/outreachly/sourcing-engine/internal/source"
)

// sourceFetchTimeout bounds one adapter's Fetch call (spec.md §5).
const sourceFetchTimeout = 30 * time.Second

// cancellationGrace bounds how long the Orchestrator keeps draining
// in-flight work after the caller cancels (spec.md §4.8).
const cancellationGrace = 500 * time.Millisecond

// Orchestrator composes the engine's components into one job runner.
type Orchestrator struct {
	sources   []source.Adapter
	scorer    *scoring.Scorer
	generator *outreach.Generator
	cfg       config.OrchestratorConfig
	log       *slog.Logger
}

// New builds an Orchestrator from its constituent components, per
// spec.md §9's redesign note: all collaborators are explicit
// construction-time dependencies, never globals.
func New(sources []source.Adapter, scorer *scoring.Scorer, generator *outreach.Generator, cfg config.OrchestratorConfig, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{sources: sources, scorer: scorer, generator: generator, cfg: cfg, log: log}
}

// Run drives one job to completion (or to a populated partial_failures
// list) and returns its JobResult.
func (o *Orchestrator) Run(ctx context.Context, job models.JobSpec) (*models.JobResult, error) {
	start := time.Now()

	if err := job.Validate(); err != nil {
		return nil, engineerr.New(engineerr.KindValidation, "", err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, o.jobTimeout())
	defer cancel()

	o.log.Info("job started", "job_id", job.ID, "state", StateDiscovering)
	rawRecords, partialFailures := o.discover(jobCtx, job)

	o.log.Info("job stage", "job_id", job.ID, "state", StateNormalizing)
	candidates, dropsBySource := normalizeAll(rawRecords)
	dropSourceIDs := make([]string, 0, len(dropsBySource))
	for sourceID := range dropsBySource {
		dropSourceIDs = append(dropSourceIDs, sourceID)
	}
	sort.Strings(dropSourceIDs)
	for _, sourceID := range dropSourceIDs {
		partialFailures = append(partialFailures, models.PartialFailure{
			SourceID: sourceID,
			Reason:   fmt.Sprintf("unparseable (%d record(s))", dropsBySource[sourceID]),
		})
	}

	o.log.Info("job stage", "job_id", job.ID, "state", StateMerging)
	merged := merge.Merge(candidates)

	o.log.Info("job stage", "job_id", job.ID, "state", StateScoring)
	scored := o.scorer.ScoreAll(merged, job, 0)

	o.log.Info("job stage", "job_id", job.ID, "state", StateRanking)
	if job.MaxCandidates > 0 && len(scored) > job.MaxCandidates {
		scored = scored[:job.MaxCandidates]
	}

	var messages []models.OutreachMessage
	if job.IncludeOutreach && o.generator != nil {
		o.log.Info("job stage", "job_id", job.ID, "state", StateGenerating)
		messages = o.generateOutreach(jobCtx, scored, job)
	}

	if jobCtx.Err() != nil {
		partialFailures = append(partialFailures, models.PartialFailure{SourceID: "orchestrator", Reason: "cancelled"})
	}

	o.log.Info("job completed", "job_id", job.ID, "state", StateCompleted, "candidates_found", len(merged))

	return &models.JobResult{
		JobID:            job.ID,
		CandidatesFound:  len(merged),
		TopCandidates:    scored,
		Messages:         messages,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		PartialFailures:  partialFailures,
	}, nil
}

// RunBatch runs many jobs concurrently, bounded by
// OrchestratorConfig.GlobalMaxInFlight (spec.md §4.8's batch mode). A
// job-level error (e.g. validation failure) does not abort the batch;
// it is recorded at that job's index in the returned error slice, with
// a nil JobResult at the same index.

func (o *Orchestrator) RunBatch(ctx context.Context, jobs []models.JobSpec) ([]*models.JobResult, []error) {
	results := make([]*models.JobResult, len(jobs))
	errs := make([]error, len(jobs))

	g, gCtx := errgroup.WithContext(ctx)
	limit := o.cfg.GlobalMaxInFlight
	if limit <= 0 {
		limit = 20
	}
	g.SetLimit(limit)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			result, err := o.Run(gCtx, job)
			results[i] = result
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}

func (o *Orchestrator) jobTimeout() time.Duration {
	if o.cfg.JobTimeoutSec <= 0 {
		return 120 * time.Second
	}
	return time.Duration(o.cfg.JobTimeoutSec) * time.Second
}

// waitOrGrace blocks until done closes, or — once ctx is cancelled —
// for at most cancellationGrace longer, whichever comes first. This is
// spec.md §4.8's cancellation contract: the Orchestrator ceases waiting
// on in-flight work within a bounded grace rather than riding out a
// slow adapter's full timeout. Goroutines that are still running when
// this returns keep running in the background; their results are
// simply left uncollected by the caller.
func waitOrGrace(ctx context.Context, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	select {
	case <-done:
	case <-time.After(cancellationGrace):
	}
}

// discover fans out to every configured adapter concurrently,
// collecting RawRecords and recording partial_failures for any source
// that times out or fails outright. Results are collected off a
// buffered channel rather than indexed into a preallocated slice so
// that a goroutine abandoned past the cancellation grace period never
// races with the values this function has already returned.
func (o *Orchestrator) discover(ctx context.Context, job models.JobSpec) ([]models.RawRecord, []models.PartialFailure) {
	type outcome struct {
		records []models.RawRecord
		failure *models.PartialFailure
	}
	results := make(chan outcome, len(o.sources))

	g, gCtx := errgroup.WithContext(ctx)
	for _, adapter := range o.sources {
		adapter := adapter
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gCtx, sourceFetchTimeout)
			defer cancel()

			records, err := adapter.Fetch(fetchCtx, job)
			if err != nil {
				reason := classifyFailureReason(err)
				results <- outcome{failure: &models.PartialFailure{SourceID: adapter.SourceID(), Reason: reason}}
				return nil
			}
			results <- outcome{records: records}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	waitOrGrace(ctx, done)

	var allRecords []models.RawRecord
	var failures []models.PartialFailure
	for drained := false; !drained; {
		select {
		case oc := <-results:
			allRecords = append(allRecords, oc.records...)
			if oc.failure != nil {
				failures = append(failures, *oc.failure)
			}
		default:
			drained = true
		}
	}
	return allRecords, failures
}

func classifyFailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var transportErr *source.TransportErr
	if errors.As(err, &transportErr) {
		return "transport"
	}
	return engineerr.Sanitize(err.Error())
}

// normalizeAll converts every RawRecord to a Candidate, order
// independent (spec.md §5), dropping unparseable records and counting
// them per originating source_id rather than propagating an error.
func normalizeAll(records []models.RawRecord) ([]models.Candidate, map[string]int) {
	candidates := make([]models.Candidate, 0, len(records))
	dropsBySource := make(map[string]int)
	for _, r := range records {
		c, err := normalize.Normalize(r)
		if err != nil {
			dropsBySource[r.SourceID]++
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, dropsBySource
}

// generateOutreach produces one message per scored candidate, bounded
// by OrchestratorConfig.OutreachConcurrency (default 4). Like discover,
// results are collected off a buffered channel rather than indexed into
// a preallocated slice so an abandoned goroutine (past the cancellation
// grace period) never races with an already-returned result.
func (o *Orchestrator) generateOutreach(ctx context.Context, scored []models.ScoredCandidate, job models.JobSpec) []models.OutreachMessage {
	results := make(chan models.OutreachMessage, len(scored))

	g, gCtx := errgroup.WithContext(ctx)
	limit := o.cfg.OutreachConcurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for _, sc := range scored {
		sc := sc
		g.Go(func() error {
			results <- o.generator.Generate(gCtx, sc, job)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	waitOrGrace(ctx, done)

	messages := make([]models.OutreachMessage, 0, len(scored))
	for drained := false; !drained; {
		select {
		case msg := <-results:
			messages = append(messages, msg)
		default:
			drained = true
		}
	}
	return messages
}
