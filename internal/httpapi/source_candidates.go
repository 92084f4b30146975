package httpapi

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/oklog/ulid/v2"

	"github.com/outreachly/sourcing-engine/internal/models"
)

// SourceCandidatesInput mirrors JobSpec directly in the request body
// (spec.md §6: "JSON body mirroring JobSpec").
type SourceCandidatesInput struct {
	Body models.JobSpec
}

// SourceCandidatesOutput mirrors JobResult directly in the response
// body.
type SourceCandidatesOutput struct {
	Body models.JobResult
}

// SourceCandidates runs one job to completion synchronously. 200 on
// success (even with partial_failures populated), 400 on a malformed
// JobSpec, 503 when the server is already at its admission cap.
func (h *Handler) SourceCandidates(ctx context.Context, input *SourceCandidatesInput) (*SourceCandidatesOutput, error) {
	release, ok := h.tryAdmit()
	if !ok {
		return nil, huma.Error503ServiceUnavailable("engine busy: at max concurrent jobs")
	}
	defer release()

	job := input.Body
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}

	result, err := h.engine.SourceCandidates(ctx, job)
	if err != nil {
		return nil, asHumaError(err)
	}
	return &SourceCandidatesOutput{Body: *result}, nil
}
