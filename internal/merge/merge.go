// Package merge implements the Profile Merger (C5, spec.md §4.5):
// groups normalized Candidates by identity_key and folds same-identity
// records into one, unioning skills/experience/education/sources and
// recomputing completeness.
package merge

import (
	"sort"

	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/normalize"
)

// Merge groups candidates by IdentityKey and folds each group into a
// single Candidate. The result order is stable: groups appear in the
// order their identity_key was first seen.
func Merge(candidates []models.Candidate) []models.Candidate {
	order := make([]string, 0, len(candidates))
	groups := make(map[string][]models.Candidate, len(candidates))

	for _, c := range candidates {
		if _, ok := groups[c.IdentityKey]; !ok {
			order = append(order, c.IdentityKey)
		}
		groups[c.IdentityKey] = append(groups[c.IdentityKey], c)
	}

	out := make([]models.Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, foldGroup(groups[key]))
	}
	return out
}

// foldGroup merges a slice of same-identity Candidates into one. It is
// idempotent: folding an already-folded single-element group returns it
// unchanged (besides a completeness recompute, which is stable).
func foldGroup(group []models.Candidate) models.Candidate {
	if len(group) == 1 {
		c := group[0]
		c.Completeness = normalize.Completeness(c)
		return c
	}

	base := mostComplete(group)
	merged := models.Candidate{
		IdentityKey:       base.IdentityKey,
		Name:              base.Name,
		Headline:          base.Headline,
		Location:          base.Location,
		PrimaryProfileURL: base.PrimaryProfileURL,
		Sources:           make(map[string]models.SourceEnrichment),
	}

	skillSet := make(map[string]bool)
	expSeen := make(map[string]int) // key -> index in merged.Experience
	eduSeen := make(map[string]bool)

	for _, c := range group {
		if merged.Name == "" && c.Name != "" {
			merged.Name = c.Name
		}
		if merged.Headline == "" && c.Headline != "" {
			merged.Headline = c.Headline
		}
		if merged.Location == "" && c.Location != "" {
			merged.Location = c.Location
		}
		if merged.PrimaryProfileURL == "" && c.PrimaryProfileURL != "" {
			merged.PrimaryProfileURL = c.PrimaryProfileURL
		}

		for _, s := range c.Skills {
			if !skillSet[s] {
				skillSet[s] = true
				merged.Skills = append(merged.Skills, s)
			}
		}

		for _, e := range c.Experience {
			key := e.Title + "|" + e.Company + "|" + e.Start
			if idx, ok := expSeen[key]; ok {
				// Prefer the entry with the longer (more informative)
				// description on conflict.
				if len(e.Description) > len(merged.Experience[idx].Description) {
					merged.Experience[idx] = e
				}
				continue
			}
			expSeen[key] = len(merged.Experience)
			merged.Experience = append(merged.Experience, e)
		}

		for _, ed := range c.Education {
			key := ed.School + "|" + ed.Degree + "|" + ed.Year
			if eduSeen[key] {
				continue
			}
			eduSeen[key] = true
			merged.Education = append(merged.Education, ed)
		}

		for sourceID, enrich := range c.Sources {
			existing, ok := merged.Sources[sourceID]
			if !ok || enrich.FetchedAt >= existing.FetchedAt {
				merged.Sources[sourceID] = enrich
			}
		}
	}

	sort.Strings(merged.Skills)
	merged.Completeness = normalize.Completeness(merged)
	return merged
}

// mostComplete picks the group member with the highest completeness
// score to serve as the base for top-level scalar fields (spec.md:
// "prefer the most complete record as the base"), breaking ties by
// input order.
func mostComplete(group []models.Candidate) models.Candidate {
	best := group[0]
	bestScore := normalize.Completeness(best)
	for _, c := range group[1:] {
		if score := normalize.Completeness(c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
