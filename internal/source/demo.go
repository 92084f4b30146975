package source

import (
	"fmt"

	"github.com/outreachly/sourcing-engine/internal/models"
)

// demoProfiles is a small, fixed roster used by every adapter's demo
// mode. It is deliberately deterministic — no randomness — so demo-mode
// job results are reproducible across runs (spec.md §4.3).
var demoProfiles = []struct {
	name     string
	title    string
	company  string
	location string
	skills   []string
	school   string
	degree   string
}{
	{"Sarah Chen", "Senior ML Engineer", "Google", "San Francisco, CA",
		[]string{"python", "pytorch", "kubernetes"}, "Stanford", "MS Computer Science"},
	{"Marcus Webb", "Staff Software Engineer", "Netflix", "Los Gatos, CA",
		[]string{"go", "kubernetes", "distributed systems"}, "UC Berkeley", "BS Computer Science"},
	{"Priya Nair", "Engineering Manager", "Stripe", "Dublin, Ireland",
		[]string{"python", "leadership", "payments"}, "Trinity College Dublin", "MS Software Engineering"},
	{"Diego Ramirez", "Machine Learning Researcher", "Acme AI", "Remote",
		[]string{"pytorch", "nlp", "research"}, "", ""},
	{"Alex Kim", "Founding Engineer", "Startup Labs", "New York, NY",
		[]string{"react", "node", "aws"}, "", ""},
}

// demoPayloadsFor builds source-flavored synthetic payloads from the
// shared demo roster; each source only promotes the fields it would
// realistically observe.
func demoPayloadsFor(sourceID string, job models.JobSpec) []map[string]any {
	out := make([]map[string]any, 0, len(demoProfiles))
	for i, p := range demoProfiles {
		profileURL := fmt.Sprintf("https://example.com/%s/%s", sourceID, slugify(p.name))
		payload := map[string]any{
			"name":        p.name,
			"headline":    fmt.Sprintf("%s at %s", p.title, p.company),
			"location":    p.location,
			"profile_url": profileURL,
			"skills":      p.skills,
		}
		if p.school != "" {
			payload["education"] = []any{
				map[string]any{"degree": p.degree, "school": p.school, "year": "2019"},
			}
		}
		payload["experience"] = []any{
			map[string]any{"title": p.title, "company": p.company, "start": "2021", "end": "present"},
		}
		payload["demo_rank"] = i
		out = append(out, payload)
	}
	return out
}

func slugify(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		case r >= 'A' && r <= 'Z':
			out = append(out, byte(r+32))
		case r == ' ':
			out = append(out, '-')
		}
	}
	return string(out)
}
