package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where a feedback record was extracted from.
type SourceType string

const (
	SourceSlack      SourceType = "slack"
	SourceJira       SourceType = "jira"
	SourceTranscript SourceType = "transcript"
	SourceUnknown    SourceType = "unknown"
)

// ParseSourceType normalizes an arbitrary string into a known SourceType.
func ParseSourceType(s string) SourceType {
	switch SourceType(s) {
	case SourceSlack, SourceJira, SourceTranscript:
		return SourceType(s)
	default:
		return SourceUnknown
	}
}

// FeedbackRecord represents one embedded feedback chunk. Immutable once
// stored; created at ingestion, read-only during clustering.
type FeedbackRecord struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  string     `json:"session_id"`
	SourceFile string     `json:"source_file"`
	SourceType SourceType `json:"source_type"`
	Text       string     `json:"text"`
	Embedding  []float32  `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ScoredRecord is a feedback record with a similarity score from retrieval.
type ScoredRecord struct {
	FeedbackRecord
	Score    float64 `json:"score"`
	RawScore float64 `json:"raw_score"`
}
