// Package httpapi is the HTTP collaborator (spec.md §6): a thin huma/chi
// binding over internal/engine. It owns admission control (rejecting
// new jobs with 503 when the server is already at its concurrency cap)
// and request/response shaping; it holds no sourcing logic of its own.
package httpapi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/outreachly/sourcing-engine/internal/engine"
	"github.com/outreachly/sourcing-engine/internal/engineerr"
	"github.com/outreachly/sourcing-engine/internal/models"
)

// Engine is the subset of *engine.Engine the handler depends on,
// narrowed for testability.
type Engine interface {
	SourceCandidates(ctx context.Context, job models.JobSpec) (*models.JobResult, error)
	HealthStatus() (string, map[string]string)
}

var _ Engine = (*engine.Engine)(nil)

// Handler binds the engine to HTTP, with a bounded admission semaphore
// so the server rejects work instead of queueing unboundedly when it is
// already saturated.
type Handler struct {
	engine Engine
	admit  chan struct{}
	log    *slog.Logger
}

// NewHandler builds a Handler. maxInFlight bounds concurrently admitted
// jobs at the HTTP layer; 0 or negative means unbounded.
func NewHandler(e Engine, maxInFlight int, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	var admit chan struct{}
	if maxInFlight > 0 {
		admit = make(chan struct{}, maxInFlight)
	}
	return &Handler{engine: e, admit: admit, log: log}
}

// tryAdmit returns a release func and true if the job was admitted, or
// a nil func and false if the server is saturated.
func (h *Handler) tryAdmit() (func(), bool) {
	if h.admit == nil {
		return func() {}, true
	}
	select {
	case h.admit <- struct{}{}:
		return func() { <-h.admit }, true
	default:
		return nil, false
	}
}

func asHumaError(err error) error {
	var ee *engineerr.Error
	if errors.As(err, &ee) && ee.Kind == engineerr.KindValidation {
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
