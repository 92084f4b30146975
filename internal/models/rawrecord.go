package models

import "time"

// RawRecord is the per-source payload before normalization: an opaque
// blob plus the tagging the Normalizer needs.
type RawRecord struct {
	SourceID  string         `json:"source_id"`
	FetchedAt time.Time      `json:"fetched_at"`
	Synthetic bool           `json:"synthetic,omitempty"`
	Payload   map[string]any `json:"payload"`
}
