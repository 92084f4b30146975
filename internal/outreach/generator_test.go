package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

func scenarioECandidate() models.ScoredCandidate {
	return models.ScoredCandidate{
		Candidate: models.Candidate{
			IdentityKey: "sarah-chen",
			Name:        "Sarah Chen",
			Skills:      []string{"pytorch", "python"},
			Experience: []models.ExperienceEntry{
				{Title: "ML Research Engineer", Company: "Google", Start: "2021", End: "present"},
			},
		},
	}
}

func scenarioEJob() models.JobSpec {
	return models.JobSpec{
		ID:             "job-1",
		RequiredSkills: []string{"pytorch"},
		JobTitle:       "ML Research Engineer",
		JobCompany:     "Acme AI",
	}
}

// Scenario E: AI backend disabled. method="template"; body starts with
// "Hi Sarah,"; contains "Google", "PyTorch", "ML Research Engineer";
// ends with a sign-off line.
func TestGenerate_TemplateFallback_MatchesScenarioE(t *testing.T) {
	g := New(nil, nil, 0)
	msg := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())

	assert.Equal(t, models.OutreachMethodTemplate, msg.Method)
	assert.True(t, strings.HasPrefix(msg.Body, "Hi Sarah,"))
	assert.Contains(t, msg.Body, "Google")
	assert.True(t, strings.Contains(msg.Body, "PyTorch") || strings.Contains(msg.Body, "pytorch"))
	assert.Contains(t, msg.Body, "ML Research Engineer")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(msg.Body), "The Hiring Team"))
	assert.Equal(t, len(msg.Body), msg.CharCount)
}

func TestGenerate_TemplateFallback_IsDeterministic(t *testing.T) {
	g := New(nil, nil, 0)
	a := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())
	b := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())
	assert.Equal(t, a.Body, b.Body)
}

type fakeBackend struct {
	healthErr error
	text      string
	genErr    error
}

func (f *fakeBackend) HealthCheck(ctx context.Context) error { return f.healthErr }
func (f *fakeBackend) Generate(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return f.text, f.genErr
}

func TestGenerate_UsesAIWhenHealthyAndUsable(t *testing.T) {
	g := New(&fakeBackend{text: "Hi Sarah, I wanted to reach out about an exciting ML Research Engineer opportunity. Best, Team"}, nil, time.Second)
	msg := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())
	assert.Equal(t, models.OutreachMethodAI, msg.Method)
}

func TestGenerate_FallsBackWhenAIUnhealthy(t *testing.T) {
	g := New(&fakeBackend{healthErr: errors.New("down")}, nil, time.Second)
	msg := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())
	assert.Equal(t, models.OutreachMethodTemplate, msg.Method)
}

func TestGenerate_FallsBackWhenAIResponseTooShort(t *testing.T) {
	g := New(&fakeBackend{text: "Hi!"}, nil, time.Second)
	msg := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())
	assert.Equal(t, models.OutreachMethodTemplate, msg.Method)
}

func TestGenerate_FallsBackWhenAIResponseHasBannedPhrase(t *testing.T) {
	g := New(&fakeBackend{text: "As an AI language model, I cannot write outreach messages for you today unfortunately."}, nil, time.Second)
	msg := g.Generate(context.Background(), scenarioECandidate(), scenarioEJob())
	assert.Equal(t, models.OutreachMethodTemplate, msg.Method)
}

func TestClassify_ResearcherFromTitle(t *testing.T) {
	c := models.Candidate{Experience: []models.ExperienceEntry{{Title: "ML Research Engineer"}}}
	assert.Equal(t, ClassResearcher, classify(c))
}

func TestClassify_ExecutiveFromTitle(t *testing.T) {
	c := models.Candidate{Experience: []models.ExperienceEntry{{Title: "VP of Engineering"}}}
	assert.Equal(t, ClassExecutive, classify(c))
}

func TestClassify_StartupFromTitle(t *testing.T) {
	c := models.Candidate{Experience: []models.ExperienceEntry{{Title: "Founding Engineer"}}}
	assert.Equal(t, ClassStartup, classify(c))
}

func TestClassify_DefaultWhenNoMatch(t *testing.T) {
	c := models.Candidate{Experience: []models.ExperienceEntry{{Title: "Software Engineer"}}}
	assert.Equal(t, ClassDefault, classify(c))
}

func TestTopOverlappingSkill_PrefersRequiredOverPreferred(t *testing.T) {
	got := topOverlappingSkill([]string{"go", "python"}, []string{"python"}, []string{"go"})
	assert.Equal(t, "python", got)
}

func TestBuildContext_SplitsFirstName(t *testing.T) {
	sc := scenarioECandidate()
	ctx := buildContext(sc, scenarioEJob())
	assert.Equal(t, "Sarah", ctx.FirstName)
	assert.Equal(t, "Google", ctx.RecentCompany)
}

// The AI backend is paced through C1 under source_id "ai"; a cancelled
// context means Acquire returns immediately with an error, so the
// generator falls back to the template even though the backend itself
// is healthy and would return a usable response.
func TestGenerate_RespectsAIRateLimiterCancellation(t *testing.T) {
	limiter := ratelimit.New()
	limiter.ConfigureSource(config.SourceAI, ratelimit.DefaultSourceConfig(20, 60))
	g := New(&fakeBackend{text: "Hi Sarah, I wanted to reach out about an exciting ML Research Engineer opportunity. Best, Team"}, limiter, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := g.Generate(ctx, scenarioECandidate(), scenarioEJob())
	assert.Equal(t, models.OutreachMethodTemplate, msg.Method)
}

func TestAnthropicBackend_NilWithoutCredential(t *testing.T) {
	require.Nil(t, NewAnthropicBackend(config.AIConfig{}))
}
