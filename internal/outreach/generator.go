// Package outreach implements the Outreach Generator (C7, spec.md
// §4.7): select a template class, build a bounded context object, try
// the AI backend when configured and healthy, and fall back to a
// deterministic template otherwise.
package outreach

import (
	"context"
	"strings"
	"time"

	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

// defaultTimeout is the wall-clock bound on one AI backend Generate
// call, all of its retry attempts included.
const defaultTimeout = 15 * time.Second

// minAcceptableChars is the shortest AI response treated as usable.
const minAcceptableChars = 40

// bannedPhrases trip the "unusable response" fallback path — generic
// filler an AI backend sometimes produces instead of an actual
// message.
var bannedPhrases = []string{
	"as an ai language model",
	"i cannot help with that",
	"i'm unable to",
	"i don't have access to",
}

// Generator produces one OutreachMessage per ScoredCandidate.
type Generator struct {
	backend AIBackend
	limiter *ratelimit.Limiter
	timeout time.Duration
}

// New builds a Generator. backend may be nil (AI disabled/unconfigured),
// in which case every message uses the template fallback. limiter paces
// AI calls under source_id "ai" (spec.md: "Rate limiting for the AI
// backend goes through C1 with source_id 'ai'.").
func New(backend AIBackend, limiter *ratelimit.Limiter, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{backend: backend, limiter: limiter, timeout: timeout}
}

// Generate produces one OutreachMessage for sc against job.
func (g *Generator) Generate(ctx context.Context, sc models.ScoredCandidate, job models.JobSpec) models.OutreachMessage {
	class := classify(sc.Candidate)
	msgCtx := buildContext(sc, job)

	if g.backend != nil {
		if err := g.backend.HealthCheck(ctx); err == nil {
			if body, ok := g.tryAI(ctx, class, msgCtx); ok {
				return models.OutreachMessage{
					CandidateRef: sc.IdentityKey,
					Body:         body,
					Method:       models.OutreachMethodAI,
					GeneratedAt:  time.Now(),
					CharCount:    len(body),
				}
			}
		}
	}

	body := renderTemplate(class, msgCtx)
	return models.OutreachMessage{
		CandidateRef: sc.IdentityKey,
		Body:         body,
		Method:       models.OutreachMethodTemplate,
		GeneratedAt:  time.Now(),
		CharCount:    len(body),
	}
}

// tryAI requests a completion and validates it against the usability
// rules in spec.md §4.7 step 4.
func (g *Generator) tryAI(ctx context.Context, class TemplateClass, msgCtx messageContext) (string, bool) {
	if g.limiter != nil {
		if err := g.limiter.Acquire(ctx, config.SourceAI); err != nil {
			return "", false
		}
	}

	prompt := buildPrompt(class, msgCtx)
	text, err := g.backend.Generate(ctx, prompt, g.timeout)
	if err != nil {
		return "", false
	}
	text = cleanResponse(text)
	if !isUsable(text) {
		return "", false
	}
	return text, true
}

// buildPrompt renders a bounded prompt from the context object; it
// never includes anything beyond the documented context fields.
func buildPrompt(class TemplateClass, ctx messageContext) string {
	var b strings.Builder
	b.WriteString("Write a short, warm outreach message to a job candidate. ")
	b.WriteString("Start with \"Hi <first name>,\" and end with a brief sign-off.\n\n")
	b.WriteString("Candidate first name: " + nonEmpty(ctx.FirstName, "there") + "\n")
	b.WriteString("Most recent role: " + nonEmpty(ctx.RecentTitle, "unknown") + " at " + nonEmpty(ctx.RecentCompany, "unknown") + "\n")
	b.WriteString("Top overlapping skill: " + nonEmpty(ctx.TopSkillOverlap, "unknown") + "\n")
	b.WriteString("Open role: " + nonEmpty(ctx.JobTitle, "unknown") + " at " + nonEmpty(ctx.JobCompany, "unknown") + "\n")
	if len(ctx.JobHighlights) > 0 {
		b.WriteString("Role highlights: " + strings.Join(ctx.JobHighlights, "; ") + "\n")
	}
	b.WriteString("Tone: " + string(class) + "\n")
	return b.String()
}

// cleanResponse strips common AI filler prefixes ("Sure, here's...")
// so the body reads as a direct message.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, prefix := range []string{"sure, here's", "here's a", "here is a", "certainly!"} {
		if strings.HasPrefix(lower, prefix) {
			if idx := strings.IndexByte(text, '\n'); idx >= 0 {
				text = strings.TrimSpace(text[idx+1:])
				lower = strings.ToLower(text)
			}
		}
	}
	return text
}

func isUsable(text string) bool {
	if len(text) < minAcceptableChars {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
