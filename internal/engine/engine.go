// Package engine is the single public entry point external collaborators
// (the HTTP server, the CLI) should depend on. It wires together the
// engine's components from a Config and exposes only the
// Orchestrator's job-running surface — callers never reach into
// scoring/normalize/merge/source directly (spec.md §6).
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/orchestrator"
	"github.com/outreachly/sourcing-engine/internal/outreach"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
	"github.com/outreachly/sourcing-engine/internal/scoring"
	"github.com/outreachly/sourcing-engine/internal/source"
)

// AI backend rate limits: spec.md names no per-AI-call env tunable, so
// the "ai" source_id gets a fixed conservative bucket sized for a
// single-model outreach backend rather than a configurable one.
const (
	aiRequestsPerWindow = 20
	aiWindowSeconds     = 60
)

// Engine composes the configured components into one job runner and
// exposes the rate limiter for health reporting.
type Engine struct {
	orch    *orchestrator.Orchestrator
	limiter *ratelimit.Limiter
	sources []string
}

// New builds an Engine from cfg. AI backend is optional: if
// cfg.AI.Credential is empty, outreach generation always falls back to
// the deterministic template.
func New(cfg *config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	limiter := ratelimit.New(ratelimit.WithGlobalBucket(float64(cfg.Orchestrator.GlobalMaxInFlight), cfg.Orchestrator.GlobalMaxInFlight*2))
	c := cache.New(cfg.Cache.Capacity)

	var adapters []source.Adapter
	var sourceIDs []string
	for _, id := range []string{config.SourcePrimary, config.SourceCodeHost, config.SourceMicroblog, config.SourcePersonalSite} {
		sc, ok := cfg.Sources[id]
		if !ok || !sc.Enabled {
			continue
		}
		limiter.ConfigureSource(id, ratelimit.DefaultSourceConfig(sc.RequestsPerWindow, sc.WindowSeconds))
		sourceIDs = append(sourceIDs, id)
		switch id {
		case config.SourcePrimary:
			adapters = append(adapters, source.NewPrimaryAdapter(c, limiter, sc, log))
		case config.SourceCodeHost:
			adapters = append(adapters, source.NewCodeHostAdapter(c, limiter, sc, log))
		case config.SourceMicroblog:
			adapters = append(adapters, source.NewMicroblogAdapter(c, limiter, sc, log))
		case config.SourcePersonalSite:
			adapters = append(adapters, source.NewPersonalSiteAdapter(c, limiter, sc, log))
		}
	}

	scorer := scoring.New(cfg.Scoring.RubricWeights, cfg.Scoring.EliteSchools, cfg.Scoring.TopTierCompanies)

	limiter.ConfigureSource(config.SourceAI, ratelimit.DefaultSourceConfig(aiRequestsPerWindow, aiWindowSeconds))
	backend := outreach.NewAnthropicBackend(cfg.AI)
	generator := outreach.New(backend, limiter, time.Duration(cfg.AI.TimeoutMs)*time.Millisecond)

	orch := orchestrator.New(adapters, scorer, generator, cfg.Orchestrator, log)

	return &Engine{orch: orch, limiter: limiter, sources: sourceIDs}
}

// SourceCandidates runs one job synchronously, the engine's sole
// job-submission path (spec.md §6).
func (e *Engine) SourceCandidates(ctx context.Context, job models.JobSpec) (*models.JobResult, error) {
	return e.orch.Run(ctx, job)
}

// SourceCandidatesBatch runs many jobs concurrently (spec.md §4.8's
// batch mode).
func (e *Engine) SourceCandidatesBatch(ctx context.Context, jobs []models.JobSpec) ([]*models.JobResult, []error) {
	return e.orch.RunBatch(ctx, jobs)
}

// HealthStatus reports the rate limiter's per-source view, and an
// overall status of "degraded" if any configured source is throttled
// or unavailable (spec.md §6).
func (e *Engine) HealthStatus() (string, map[string]string) {
	sources := make(map[string]string, len(e.sources))
	overall := "ok"
	for _, id := range e.sources {
		status := e.limiter.Status(id)
		sources[id] = status
		if status != "ok" {
			overall = "degraded"
		}
	}
	return overall, sources
}
