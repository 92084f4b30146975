// Package models defines the domain records passed between the engine's
// components: the query (JobSpec), the per-source payload before
// normalization (RawRecord), the canonical person record (Candidate),
// and the outputs of scoring, outreach, and a completed job.
package models

import "fmt"

// Seniority is one of the recognized seniority hints on a JobSpec.
type Seniority string

const (
	SeniorityIntern    Seniority = "intern"
	SeniorityJunior    Seniority = "junior"
	SeniorityMid       Seniority = "mid"
	SenioritySenior    Seniority = "senior"
	SeniorityStaff     Seniority = "staff"
	SeniorityPrincipal Seniority = "principal"
	SeniorityLead      Seniority = "lead"
	SeniorityManager   Seniority = "manager"
	SeniorityDirector  Seniority = "director"
	SeniorityVP        Seniority = "vp"
	SeniorityCLevel    Seniority = "c-level"
	SeniorityUnknown   Seniority = "unknown"
)

// JobSpec is the query that drives one sourcing job.
type JobSpec struct {
	ID                  string             `json:"id"`
	Description         string             `json:"description"`
	RequiredSkills      []string           `json:"required_skills"`
	PreferredSkills     []string           `json:"preferred_skills"`
	LocationPreferences []string           `json:"location_preferences"`
	SeniorityHint       Seniority          `json:"seniority_hint"`
	RubricWeights       map[string]float64 `json:"rubric_weights"`
	MaxCandidates       int                `json:"max_candidates"`
	IncludeOutreach     bool               `json:"include_outreach"`

	// JobTitle and JobCompany feed the outreach generator's context
	// object (spec.md §4.7); they are not part of the rubric itself.
	JobTitle      string   `json:"job_title"`
	JobCompany    string   `json:"job_company"`
	JobHighlights []string `json:"job_highlights"`
}

// Validate checks the invariants from spec.md §3: weights non-negative
// and summing to 1.0±1e-6, max_candidates >= 1.
func (j *JobSpec) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job_spec: id is required")
	}
	if j.MaxCandidates < 1 {
		return fmt.Errorf("job_spec: max_candidates must be >= 1, got %d", j.MaxCandidates)
	}
	if len(j.RubricWeights) > 0 {
		var sum float64
		for dim, w := range j.RubricWeights {
			if w < 0 {
				return fmt.Errorf("job_spec: rubric weight %q is negative", dim)
			}
			sum += w
		}
		if diff := sum - 1.0; diff > 1e-6 || diff < -1e-6 {
			return fmt.Errorf("job_spec: rubric weights sum to %f, want 1.0", sum)
		}
	}
	return nil
}
