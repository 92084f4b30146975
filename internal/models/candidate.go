package models

// ExperienceEntry is one role in a Candidate's work history. End may be
// the literal string "present" for an ongoing role.
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
}

// EducationEntry is one completed or in-progress degree.
type EducationEntry struct {
	Degree string `json:"degree"`
	School string `json:"school"`
	Year   string `json:"year"`
}

// SourceEnrichment holds source-specific stats merged onto a Candidate,
// e.g. code-hosting repo counts, microblog follower counts, or personal
// site metadata. Keys are free-form per source_id.
type SourceEnrichment struct {
	SourceID  string         `json:"source_id"`
	FetchedAt string         `json:"fetched_at"`
	Data      map[string]any `json:"data"`
}

// Candidate is the normalized representation of a person, aggregated
// across sources by identity_key.
type Candidate struct {
	IdentityKey       string                      `json:"identity_key"`
	Name              string                      `json:"name"`
	Headline          string                      `json:"headline"`
	Location          string                      `json:"location"`
	PrimaryProfileURL string                      `json:"primary_profile_url"`
	Experience        []ExperienceEntry           `json:"experience"`
	Education         []EducationEntry            `json:"education"`
	Skills            []string                    `json:"skills"`
	Sources           map[string]SourceEnrichment  `json:"sources"`
	Completeness      float64                      `json:"completeness"`
}
