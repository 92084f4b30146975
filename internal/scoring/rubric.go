package scoring

import (
	"sort"
	"strconv"
	"strings"

	"github.com/outreachly/sourcing-engine/internal/models"
)

// Rubric dimension keys, matching config.ScoringConfig.RubricWeights
// and JobSpec.RubricWeights.
const (
	DimEducation        = "education"
	DimCareerTrajectory = "career_trajectory"
	DimCompanyRelevance = "company_relevance"
	DimExperienceMatch  = "experience_match"
	DimLocationMatch    = "location_match"
	DimTenure           = "tenure"
)

// neutralScore is emitted for a dimension whose inputs are missing; it
// does not contribute to coverage (spec.md §4.6).
const neutralScore = 5.0

// dimensionResult is one dimension's raw [0,10] score plus whether its
// inputs were present (for coverage/confidence).
type dimensionResult struct {
	score    float64
	hasInput bool
}

// vocab bundles the reference sets a scorer run needs.
type vocab struct {
	eliteSchools     map[string]bool
	topTierCompanies map[string]bool
}

func newVocab(eliteSchools, topTierCompanies []string) vocab {
	v := vocab{
		eliteSchools:     make(map[string]bool, len(eliteSchools)),
		topTierCompanies: make(map[string]bool, len(topTierCompanies)),
	}
	for _, s := range eliteSchools {
		v.eliteSchools[strings.ToLower(s)] = true
	}
	for _, c := range topTierCompanies {
		v.topTierCompanies[strings.ToLower(c)] = true
	}
	return v
}

// scoreEducation implements spec.md §4.6's Education dimension.
func (v vocab) scoreEducation(c models.Candidate, experienceCompensates bool) dimensionResult {
	if len(c.Education) == 0 {
		if experienceCompensates {
			return dimensionResult{score: 3.5, hasInput: false}
		}
		return dimensionResult{score: 1.0, hasInput: false}
	}
	for _, e := range c.Education {
		if v.eliteSchools[strings.ToLower(e.School)] {
			return dimensionResult{score: 9.5, hasInput: true}
		}
	}
	// Any completed degree without an elite-school match: treat an entry
	// with both a school and a degree as "strong/top-100" grounds for
	// 7-8, else a plain "completed degree" 5-6.
	for _, e := range c.Education {
		if strings.TrimSpace(e.School) != "" && strings.TrimSpace(e.Degree) != "" {
			return dimensionResult{score: 7.5, hasInput: true}
		}
	}
	return dimensionResult{score: 5.5, hasInput: true}
}

// scoreCareerTrajectory implements the Career Trajectory dimension:
// map titles to seniority rungs in chronological order and score the
// normalized slope, plus a capped cross-function breadth bonus.
func (v vocab) scoreCareerTrajectory(c models.Candidate) dimensionResult {
	if len(c.Experience) == 0 {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	entries := sortedByStart(c.Experience)
	if len(entries) == 1 {
		rung := ladderRung(entries[0].Title)
		return dimensionResult{score: clamp(5.0+float64(rung-2), 0, 10), hasInput: true}
	}

	rungs := make([]int, len(entries))
	for i, e := range entries {
		rungs[i] = ladderRung(e.Title)
	}
	slope := float64(rungs[len(rungs)-1]-rungs[0]) / float64(len(rungs)-1)
	// Map slope (roughly [-2,2]) onto [0,10], clamped; a flat
	// trajectory (slope 0) lands at the midpoint.
	score := 5.0 + slope*2.5

	distinctCompanies := make(map[string]bool)
	for _, e := range entries {
		if e.Company != "" {
			distinctCompanies[strings.ToLower(e.Company)] = true
		}
	}
	breadthBonus := 0.0
	if len(distinctCompanies) >= 3 {
		breadthBonus = 1.0
	}
	score += breadthBonus

	return dimensionResult{score: clamp(score, 0, 10), hasInput: true}
}

// scoreCompanyRelevance implements the Company Relevance dimension
// using the most recent non-"present"... actually most-recent role's
// company regardless of end date, per spec.md §4.6 ("most recent
// non-present employer" reads as: the most recent role, whose End may
// or may not be "present" — used here as the latest entry by Start).
func (v vocab) scoreCompanyRelevance(c models.Candidate) dimensionResult {
	if len(c.Experience) == 0 {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	entries := sortedByStart(c.Experience)
	latest := entries[len(entries)-1]
	company := strings.ToLower(strings.TrimSpace(latest.Company))
	if company == "" {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	if v.topTierCompanies[company] {
		return dimensionResult{score: 9.5, hasInput: true}
	}
	if isOffDomain(company) {
		return dimensionResult{score: 2.0, hasInput: true}
	}
	return dimensionResult{score: 7.5, hasInput: true}
}

// scoreExperienceMatch implements the primary skill-overlap signal.
func scoreExperienceMatch(c models.Candidate, required, preferred []string) dimensionResult {
	if len(required) == 0 {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	candSkills := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		candSkills[strings.ToLower(s)] = true
	}

	var hit int
	for _, req := range required {
		if candSkills[strings.ToLower(req)] {
			hit++
		}
	}
	match := float64(hit) / float64(len(required))
	score := 2.0 + match*8.0

	if len(preferred) > 0 {
		var prefHit int
		for _, p := range preferred {
			if candSkills[strings.ToLower(p)] {
				prefHit++
			}
		}
		prefMatch := float64(prefHit) / float64(len(preferred))
		score += clamp(prefMatch*1.5, 0, 1.5)
	}

	return dimensionResult{score: clamp(score, 0, 10), hasInput: true}
}

// scoreLocationMatch implements the Location Match dimension.
func scoreLocationMatch(c models.Candidate, preferences []string) dimensionResult {
	if len(preferences) == 0 {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	if c.Location == "" {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	candLoc := strings.ToLower(c.Location)

	remoteWanted := false
	for _, pref := range preferences {
		p := strings.ToLower(strings.TrimSpace(pref))
		if p == "remote" {
			remoteWanted = true
			continue
		}
		if candLoc == p {
			return dimensionResult{score: 10, hasInput: true}
		}
		if sameMetro(candLoc, p) {
			return dimensionResult{score: 8, hasInput: true}
		}
		if sameCountry(candLoc, p) {
			return dimensionResult{score: 6, hasInput: true}
		}
	}
	if remoteWanted && strings.Contains(candLoc, "remote") {
		return dimensionResult{score: 4, hasInput: true}
	}
	return dimensionResult{score: 0, hasInput: true}
}

// scoreTenure implements the Tenure dimension: average tenure in years
// across roles with both a parseable Start and a non-"present" End.
func scoreTenure(c models.Candidate) dimensionResult {
	var total float64
	var count int
	for _, e := range c.Experience {
		if strings.EqualFold(e.End, "present") || e.End == "" {
			continue
		}
		startYear, ok1 := parseYear(e.Start)
		endYear, ok2 := parseYear(e.End)
		if !ok1 || !ok2 || endYear < startYear {
			continue
		}
		total += float64(endYear - startYear)
		count++
	}
	if count == 0 {
		return dimensionResult{score: neutralScore, hasInput: false}
	}
	avg := total / float64(count)
	switch {
	case avg < 1:
		return dimensionResult{score: 4, hasInput: true}
	case avg >= 2 && avg <= 3:
		return dimensionResult{score: 9.5, hasInput: true}
	case avg > 6:
		return dimensionResult{score: 7, hasInput: true}
	case avg < 2:
		return dimensionResult{score: 6.5, hasInput: true}
	default: // 3 < avg <= 6
		return dimensionResult{score: 8, hasInput: true}
	}
}

func sortedByStart(entries []models.ExperienceEntry) []models.ExperienceEntry {
	out := make([]models.ExperienceEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		yi, _ := parseYear(out[i].Start)
		yj, _ := parseYear(out[j].Start)
		return yi < yj
	})
	return out
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var offDomainCompanies = map[string]bool{
	"unaffiliated": true, "self-employed": true, "freelance": true, "unknown": true,
}

func isOffDomain(company string) bool {
	return offDomainCompanies[company]
}

func sameMetro(a, b string) bool {
	return firstCommaToken(a) == firstCommaToken(b) && firstCommaToken(a) != ""
}

func sameCountry(a, b string) bool {
	aParts := strings.Split(a, ",")
	bParts := strings.Split(b, ",")
	if len(aParts) == 0 || len(bParts) == 0 {
		return false
	}
	return strings.TrimSpace(aParts[len(aParts)-1]) == strings.TrimSpace(bParts[len(bParts)-1])
}

func firstCommaToken(s string) string {
	parts := strings.SplitN(s, ",", 2)
	return strings.TrimSpace(parts[0])
}
