// Package scoring implements the Fit Scorer (C6, spec.md §4.6): a
// weighted rubric over six dimensions producing a fit_score, per
// dimension breakdown, confidence, and a handful of templated
// insights, with deterministic tie-breaking for ranking.
package scoring

import (
	"fmt"
	"sort"

	"github.com/outreachly/sourcing-engine/internal/models"
)

// Scorer applies a rubric to Candidates against a JobSpec.
type Scorer struct {
	defaultWeights   map[string]float64
	eliteSchools     []string
	topTierCompanies []string
}

// New constructs a Scorer from the engine's configured reference sets
// and default rubric weights (overridden per-job when JobSpec.RubricWeights
// is set).
func New(defaultWeights map[string]float64, eliteSchools, topTierCompanies []string) *Scorer {
	return &Scorer{
		defaultWeights:   defaultWeights,
		eliteSchools:     eliteSchools,
		topTierCompanies: topTierCompanies,
	}
}

// Score computes one ScoredCandidate for c against job.
func (s *Scorer) Score(c models.Candidate, job models.JobSpec) models.ScoredCandidate {
	weights := job.RubricWeights
	if len(weights) == 0 {
		weights = s.defaultWeights
	}
	v := newVocab(s.eliteSchools, s.topTierCompanies)

	experienceCompensates := len(c.Experience) >= 2
	results := map[string]dimensionResult{
		DimEducation:        v.scoreEducation(c, experienceCompensates),
		DimCareerTrajectory: v.scoreCareerTrajectory(c),
		DimCompanyRelevance: v.scoreCompanyRelevance(c),
		DimExperienceMatch:  scoreExperienceMatch(c, job.RequiredSkills, job.PreferredSkills),
		DimLocationMatch:    scoreLocationMatch(c, job.LocationPreferences),
		DimTenure:           scoreTenure(c),
	}

	breakdown := make(map[string]float64, len(results))
	var fitScore float64
	var present, total int
	for dim, res := range results {
		breakdown[dim] = res.score
		if w, ok := weights[dim]; ok {
			fitScore += w * res.score
		}
		total++
		if res.hasInput {
			present++
		}
	}
	coverage := 0.0
	if total > 0 {
		coverage = float64(present) / float64(total)
	}

	confidence := c.Completeness * coverage
	fitScore = clamp(fitScore, 0, 10)
	confidence = clamp(confidence, 0, 1)

	return models.ScoredCandidate{
		Candidate:  c,
		FitScore:   fitScore,
		Breakdown:  breakdown,
		Confidence: confidence,
		Insights:   buildInsights(breakdown),
	}
}

// ScoreAll scores every candidate and returns them ranked per spec.md
// §4.6's tie-breaking rule: fit_score desc, then confidence desc, then
// completeness desc, then identity_key asc. maxCandidates <= 0 means
// unbounded.
func (s *Scorer) ScoreAll(candidates []models.Candidate, job models.JobSpec, maxCandidates int) []models.ScoredCandidate {
	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, s.Score(c, job))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.FitScore != b.FitScore {
			return a.FitScore > b.FitScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Completeness != b.Completeness {
			return a.Completeness > b.Completeness
		}
		return a.IdentityKey < b.IdentityKey
	})

	if maxCandidates > 0 && len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}
	return scored
}

// insightRule is one threshold-triggered templated insight.
type insightRule struct {
	dim       string
	threshold float64
	text      string
}

var insightRules = []insightRule{
	{DimExperienceMatch, 9, "strong skill match"},
	{DimExperienceMatch, 7, "good skill overlap"},
	{DimEducation, 9, "elite education background"},
	{DimCareerTrajectory, 8, "fast-rising career trajectory"},
	{DimCompanyRelevance, 9, "top-tier company pedigree"},
	{DimLocationMatch, 9, "location match"},
	{DimTenure, 9, "healthy tenure pattern"},
	{DimTenure, 4, "short average tenure"},
	{DimExperienceMatch, 3, "limited skill overlap"},
}

// buildInsights emits at most 6 templated strings for thresholds the
// breakdown crosses, in insightRules order.
func buildInsights(breakdown map[string]float64) []string {
	var out []string
	for _, rule := range insightRules {
		score, ok := breakdown[rule.dim]
		if !ok {
			continue
		}
		if (rule.threshold >= 5 && score >= rule.threshold) || (rule.threshold < 5 && score <= rule.threshold) {
			out = append(out, rule.text)
		}
		if len(out) >= 6 {
			break
		}
	}
	return out
}

// Dimensions returns the canonical set of rubric dimension keys, used
// by ValidateWeights to confirm a weight map names only known
// dimensions.
func Dimensions() []string {
	return []string{
		DimEducation,
		DimCareerTrajectory,
		DimCompanyRelevance,
		DimExperienceMatch,
		DimLocationMatch,
		DimTenure,
	}
}

// ValidateWeights returns an error if weights names a dimension outside
// Dimensions().
func ValidateWeights(weights map[string]float64) error {
	known := make(map[string]bool)
	for _, d := range Dimensions() {
		known[d] = true
	}
	for dim := range weights {
		if !known[dim] {
			return fmt.Errorf("scoring: unknown rubric dimension %q", dim)
		}
	}
	return nil
}
