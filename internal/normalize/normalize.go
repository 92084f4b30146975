// Package normalize implements the Profile Normalizer (C4, spec.md
// §4.4): converts a RawRecord's opaque payload into a canonical
// Candidate.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/outreachly/sourcing-engine/internal/models"
)

// headlineSeparators cut a headline at the earliest occurrence of any of
// them: the title when no "at" is present, the company after "at".
var headlineSeparators = []string{"•", "|", "-"}

// expertiseTagSuffixes are trailing descriptor tags stripped from a
// parsed title (e.g. "React Engineer Expert" -> "React Engineer"). Only
// the tag words themselves are removed; a topic word before a tag is
// kept, so "Senior Engineer React Expert" -> "Senior Engineer React".
var expertiseTagSuffixes = []string{"expert", "specialist", "enthusiast", "advocate", "guru"}

// Normalize converts one RawRecord into a Candidate. It never returns
// an error for merely sparse data — sparse records simply score low
// completeness; it returns an error only when the payload is
// structurally unusable (NormalizationDrop, spec.md §7).
func Normalize(raw models.RawRecord) (models.Candidate, error) {
	p := raw.Payload
	if p == nil {
		return models.Candidate{}, fmt.Errorf("normalize: empty payload for source %q", raw.SourceID)
	}

	name := getString(p, "name")
	headline := getString(p, "headline")
	location := getString(p, "location")
	profileURL := canonicalizeURL(getString(p, "profile_url"))

	title, company := parseHeadline(headline)

	experience := parseExperience(p["experience"])
	education := parseEducation(p["education"])
	skills := tokenizeSkills(p["skills"])

	// If the source never gave structured experience but the headline
	// parsed out a company, synthesize a single current-role entry so
	// downstream scoring (company relevance, career trajectory) has
	// something to work with.
	if len(experience) == 0 && company != "" {
		experience = append(experience, models.ExperienceEntry{
			Title:   title,
			Company: company,
			End:     "present",
		})
	}

	identityKey := computeIdentityKey(profileURL, name, location)

	c := models.Candidate{
		IdentityKey:       identityKey,
		Name:              name,
		Headline:          headline,
		Location:          location,
		PrimaryProfileURL: profileURL,
		Experience:        experience,
		Education:         education,
		Skills:            skills,
		Sources: map[string]models.SourceEnrichment{
			raw.SourceID: {
				SourceID:  raw.SourceID,
				FetchedAt: raw.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
				Data:      enrichmentData(p),
			},
		},
	}
	c.Completeness = Completeness(c)
	return c, nil
}

// parseHeadline splits "headline" into (title, company) per spec.md
// §4.4: split on common separators ("at", "•", "|", "-"); the
// left-hand side after splitting on "at" becomes title; the first
// token after "at" becomes company; trailing descriptor tags are
// stripped from the title. If no "at" is present, company is empty and
// the whole headline (minus other separators) is the title.
func parseHeadline(headline string) (title, company string) {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		return "", ""
	}

	lower := strings.ToLower(headline)
	if idx := strings.Index(lower, " at "); idx >= 0 {
		title = strings.TrimSpace(headline[:idx])
		rest := strings.TrimSpace(headline[idx+len(" at "):])
		company = firstToken(rest, headlineSeparators)
		title = stripExpertiseTags(title)
		return title, company
	}

	// No "at" — the whole headline is the title, but still cut at any
	// other separator to avoid swallowing a trailing qualifier.
	title = firstToken(headline, headlineSeparators)
	title = stripExpertiseTags(title)
	return title, ""
}

// firstToken returns the text before the first occurrence of any
// separator in seps, or the whole (trimmed) string if none are found.
func firstToken(s string, seps []string) string {
	cut := len(s)
	for _, sep := range seps {
		if idx := strings.Index(s, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(s[:cut])
}

func stripExpertiseTags(title string) string {
	words := strings.Fields(title)
	for len(words) > 1 {
		last := strings.ToLower(strings.Trim(words[len(words)-1], ".,"))
		stripped := false
		for _, tag := range expertiseTagSuffixes {
			if last == tag {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(words, " ")
}

// canonicalizeURL lowercases scheme+host and strips query/fragment.
func canonicalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// computeIdentityKey returns the canonical profile URL when present,
// else a stable hash of (lowercased name, first nonempty location
// token).
func computeIdentityKey(profileURL, name, location string) string {
	if profileURL != "" {
		return profileURL
	}
	locToken := firstNonEmptyToken(location)
	h := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(locToken)))
	return "h:" + hex.EncodeToString(h[:])
}

func firstNonEmptyToken(location string) string {
	for _, tok := range strings.FieldsFunc(location, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		if tok != "" {
			return tok
		}
	}
	return ""
}

func tokenizeSkills(v any) []string {
	raw, ok := v.([]string)
	if !ok {
		if ifaces, ok := v.([]any); ok {
			for _, item := range ifaces {
				if s, ok := item.(string); ok {
					raw = append(raw, s)
				}
			}
		}
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		tok := strings.ToLower(strings.TrimSpace(s))
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func parseExperience(v any) []models.ExperienceEntry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]models.ExperienceEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.ExperienceEntry{
			Title:       getString(m, "title"),
			Company:     getString(m, "company"),
			Start:       getString(m, "start"),
			End:         getString(m, "end"),
			Description: getString(m, "description"),
		})
	}
	return out
}

func parseEducation(v any) []models.EducationEntry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]models.EducationEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.EducationEntry{
			Degree: getString(m, "degree"),
			School: getString(m, "school"),
			Year:   getString(m, "year"),
		})
	}
	return out
}

// enrichmentData copies every payload field other than the ones
// already promoted onto the Candidate, preserving source-specific
// extras (e.g. code-hosting repo/star counts) in Candidate.Sources.
func enrichmentData(p map[string]any) map[string]any {
	promoted := map[string]bool{
		"name": true, "headline": true, "location": true,
		"profile_url": true, "experience": true, "education": true, "skills": true,
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		if !promoted[k] {
			out[k] = v
		}
	}
	return out
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// expectedFieldCount is the number of expected fields in the
// completeness computation (spec.md §4.4): name, headline,
// location, profile_url, experience>=1, education>=1, skills>=3 — each
// weighted equally.
const expectedFieldCount = 7

// Completeness computes the weighted fraction of expected fields
// present on c.
func Completeness(c models.Candidate) float64 {
	var present int
	if c.Name != "" {
		present++
	}
	if c.Headline != "" {
		present++
	}
	if c.Location != "" {
		present++
	}
	if c.PrimaryProfileURL != "" {
		present++
	}
	if len(c.Experience) >= 1 {
		present++
	}
	if len(c.Education) >= 1 {
		present++
	}
	if len(c.Skills) >= 3 {
		present++
	}
	return float64(present) / float64(expectedFieldCount)
}
