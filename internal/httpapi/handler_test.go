package httpapi

import (
	"context"
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachly/sourcing-engine/internal/engineerr"
	"github.com/outreachly/sourcing-engine/internal/models"
)

type fakeEngine struct {
	result  *models.JobResult
	err     error
	status  string
	sources map[string]string
}

func (f *fakeEngine) SourceCandidates(ctx context.Context, job models.JobSpec) (*models.JobResult, error) {
	return f.result, f.err
}

func (f *fakeEngine) HealthStatus() (string, map[string]string) {
	return f.status, f.sources
}

func TestHealth_ReportsEngineStatus(t *testing.T) {
	e := &fakeEngine{status: "degraded", sources: map[string]string{"primary": "throttled"}}
	h := NewHandler(e, 0, nil)

	out, err := h.Health(context.Background(), &struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "degraded", out.Body.Status)
	assert.Equal(t, "throttled", out.Body.Sources["primary"])
}

func TestSourceCandidates_ReturnsResultOnSuccess(t *testing.T) {
	e := &fakeEngine{result: &models.JobResult{JobID: "job-1", CandidatesFound: 3}}
	h := NewHandler(e, 0, nil)

	out, err := h.SourceCandidates(context.Background(), &SourceCandidatesInput{Body: models.JobSpec{ID: "job-1", MaxCandidates: 5}})
	require.NoError(t, err)
	assert.Equal(t, "job-1", out.Body.JobID)
	assert.Equal(t, 3, out.Body.CandidatesFound)
}

func TestSourceCandidates_ValidationErrorMapsTo400(t *testing.T) {
	e := &fakeEngine{err: engineerr.New(engineerr.KindValidation, "", errors.New("max_candidates must be >= 1"))}
	h := NewHandler(e, 0, nil)

	_, err := h.SourceCandidates(context.Background(), &SourceCandidatesInput{Body: models.JobSpec{ID: "job-1"}})
	require.Error(t, err)
	var statusErr huma.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 400, statusErr.GetStatus())
}

func TestSourceCandidates_SaturatedAdmissionMapsTo503(t *testing.T) {
	e := &fakeEngine{result: &models.JobResult{JobID: "job-1"}}
	h := NewHandler(e, 1, nil)

	release, ok := h.tryAdmit()
	require.True(t, ok)
	defer release()

	_, err := h.SourceCandidates(context.Background(), &SourceCandidatesInput{Body: models.JobSpec{ID: "job-2", MaxCandidates: 1}})
	require.Error(t, err)
	var statusErr huma.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 503, statusErr.GetStatus())
}

func TestTryAdmit_UnboundedWhenZero(t *testing.T) {
	h := NewHandler(&fakeEngine{}, 0, nil)
	for i := 0; i < 5; i++ {
		_, ok := h.tryAdmit()
		assert.True(t, ok)
	}
}
