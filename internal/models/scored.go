package models

import "time"

// ScoredCandidate is a Candidate with its fit-score breakdown attached.
type ScoredCandidate struct {
	Candidate
	FitScore   float64            `json:"fit_score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Confidence float64            `json:"confidence"`
	Insights   []string           `json:"insights"`
}

// OutreachMethod distinguishes an AI-generated message from a
// deterministic template fallback.
type OutreachMethod string

const (
	OutreachMethodAI       OutreachMethod = "ai"
	OutreachMethodTemplate OutreachMethod = "template"
)

// OutreachMessage is the generated per-candidate outreach text.
type OutreachMessage struct {
	CandidateRef string         `json:"candidate_ref"`
	Body         string         `json:"body"`
	Method       OutreachMethod `json:"method"`
	GeneratedAt  time.Time      `json:"generated_at"`
	CharCount    int            `json:"char_count"`
}

// PartialFailure records a non-fatal error from one component, surfaced
// to the caller instead of raised (spec.md §7).
type PartialFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// JobResult is the Orchestrator's output for one job.
type JobResult struct {
	JobID             string            `json:"job_id"`
	CandidatesFound   int               `json:"candidates_found"`
	TopCandidates     []ScoredCandidate `json:"top_candidates"`
	Messages          []OutreachMessage `json:"messages,omitempty"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
	PartialFailures   []PartialFailure  `json:"partial_failures"`
}
