package outreach

import (
	"fmt"
	"strings"

	"github.com/outreachly/sourcing-engine/internal/models"
)

// TemplateClass selects the tone and structure of a fallback message
// (spec.md §4.7).
type TemplateClass string

const (
	ClassExecutive  TemplateClass = "executive"
	ClassResearcher TemplateClass = "researcher"
	ClassStartup    TemplateClass = "startup"
	ClassDefault    TemplateClass = "default"
)

// messageContext is the bounded context object handed to both the
// template fallback and the AI prompt builder.
type messageContext struct {
	FirstName       string
	RecentCompany   string
	RecentTitle     string
	TopSkillOverlap string
	JobTitle        string
	JobCompany      string
	JobHighlights   []string
}

// classificationRules maps title/headline keyword fragments to a
// TemplateClass, checked in order; the first match wins.
var classificationRules = []struct {
	fragment string
	class    TemplateClass
}{
	{"chief", ClassExecutive},
	{"vp", ClassExecutive},
	{"vice president", ClassExecutive},
	{"director", ClassExecutive},
	{"head of", ClassExecutive},
	{"researcher", ClassResearcher},
	{"research scientist", ClassResearcher},
	{"research engineer", ClassResearcher},
	{"founder", ClassStartup},
	{"co-founder", ClassStartup},
	{"founding engineer", ClassStartup},
}

// classify selects a TemplateClass from the candidate's most recent
// title and headline, per spec.md §4.7's deterministic mapping table.
func classify(c models.Candidate) TemplateClass {
	haystack := strings.ToLower(c.Headline)
	if len(c.Experience) > 0 {
		haystack += " " + strings.ToLower(c.Experience[len(c.Experience)-1].Title)
	}
	for _, rule := range classificationRules {
		if strings.Contains(haystack, rule.fragment) {
			return rule.class
		}
	}
	return ClassDefault
}

// buildContext assembles the messageContext from a ScoredCandidate and
// JobSpec.
func buildContext(sc models.ScoredCandidate, job models.JobSpec) messageContext {
	first := sc.Name
	if idx := strings.IndexByte(sc.Name, ' '); idx > 0 {
		first = sc.Name[:idx]
	}

	var recentCompany, recentTitle string
	if len(sc.Experience) > 0 {
		last := sc.Experience[len(sc.Experience)-1]
		recentCompany = last.Company
		recentTitle = last.Title
	}

	topSkill := topOverlappingSkill(sc.Skills, job.RequiredSkills, job.PreferredSkills)

	return messageContext{
		FirstName:       first,
		RecentCompany:   recentCompany,
		RecentTitle:     recentTitle,
		TopSkillOverlap: topSkill,
		JobTitle:        job.JobTitle,
		JobCompany:      job.JobCompany,
		JobHighlights:   job.JobHighlights,
	}
}

func topOverlappingSkill(candSkills, required, preferred []string) string {
	want := make(map[string]bool, len(required)+len(preferred))
	order := append(append([]string{}, required...), preferred...)
	for _, s := range order {
		want[strings.ToLower(s)] = true
	}
	lowerCand := make(map[string]string, len(candSkills))
	for _, s := range candSkills {
		lowerCand[strings.ToLower(s)] = s
	}
	for _, s := range order {
		key := strings.ToLower(s)
		if want[key] {
			if orig, ok := lowerCand[key]; ok {
				return orig
			}
		}
	}
	if len(candSkills) > 0 {
		return candSkills[0]
	}
	return ""
}

// renderTemplate deterministically synthesizes a fallback message body.
// Same inputs MUST produce byte-identical output across runs (spec.md
// §4.7's determinism requirement) — no timestamps or randomness in the
// body text.
func renderTemplate(class TemplateClass, ctx messageContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", nonEmpty(ctx.FirstName, "there"))

	switch class {
	case ClassExecutive:
		fmt.Fprintf(&b, "Your leadership as %s at %s caught my attention. ", nonEmpty(ctx.RecentTitle, "a leader"), nonEmpty(ctx.RecentCompany, "your company"))
		fmt.Fprintf(&b, "We're hiring a %s at %s and think your background is a strong fit for the strategic scope of the role.\n\n", nonEmpty(ctx.JobTitle, "a leadership role"), nonEmpty(ctx.JobCompany, "our team"))
	case ClassResearcher:
		fmt.Fprintf(&b, "Your work as %s at %s stood out, particularly your experience with %s. ", nonEmpty(ctx.RecentTitle, "a researcher"), nonEmpty(ctx.RecentCompany, "your lab"), nonEmpty(ctx.TopSkillOverlap, "your research area"))
		fmt.Fprintf(&b, "We're building a %s role at %s and would value your perspective.\n\n", nonEmpty(ctx.JobTitle, "a research role"), nonEmpty(ctx.JobCompany, "our team"))
	case ClassStartup:
		fmt.Fprintf(&b, "Building at %s as %s is impressive — that founder energy is exactly what we're looking for. ", nonEmpty(ctx.RecentCompany, "your last venture"), nonEmpty(ctx.RecentTitle, "a founder"))
		fmt.Fprintf(&b, "We'd love to talk about a %s opportunity at %s.\n\n", nonEmpty(ctx.JobTitle, "a founding role"), nonEmpty(ctx.JobCompany, "our team"))
	default:
		fmt.Fprintf(&b, "Your background as %s at %s, especially your experience with %s, stood out to us. ", nonEmpty(ctx.RecentTitle, "an engineer"), nonEmpty(ctx.RecentCompany, "your current company"), nonEmpty(ctx.TopSkillOverlap, "your core skills"))
		fmt.Fprintf(&b, "We're hiring for %s at %s and think you'd be a great fit.\n\n", nonEmpty(ctx.JobTitle, "an open role"), nonEmpty(ctx.JobCompany, "our team"))
	}

	if len(ctx.JobHighlights) > 0 {
		b.WriteString("A few things about the role:\n")
		for _, h := range ctx.JobHighlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	b.WriteString("Would you be open to a short conversation?\n\n")
	b.WriteString("Best,\nThe Hiring Team")

	return b.String()
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
