package engine

import (
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

// RecordView is the read model served over the API. It carries both the
// canonical field names and the legacy aliases older clients still read
// (content for memory_value, confidence_score for confidence).
type RecordView struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"user_id"`
	Category        string  `json:"category"`
	Key             string  `json:"memory_key"`
	Value           string  `json:"memory_value"`
	Content         string  `json:"content"`
	Confidence      float64 `json:"confidence"`
	ConfidenceScore float64 `json:"confidence_score"`
	SourceType      string  `json:"source_type"`
	FirstMentioned  string  `json:"first_mentioned"`
	LastUpdated     string  `json:"last_updated,omitempty"`
	MentionCount    int     `json:"mention_count"`
	IsSensitive     bool    `json:"is_sensitive"`
}

// NewRecordView projects a stored record into the API read model.
func NewRecordView(r store.Record) RecordView {
	v := RecordView{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Category:        r.Category,
		Key:             r.Key,
		Value:           r.Value,
		Content:         r.Value,
		Confidence:      r.Confidence,
		ConfidenceScore: r.Confidence,
		SourceType:      r.SourceType,
		FirstMentioned:  r.FirstMentioned.UTC().Format(time.RFC3339),
		MentionCount:    r.MentionCount,
		IsSensitive:     r.IsSensitive,
	}
	if !r.LastUpdated.IsZero() {
		v.LastUpdated = r.LastUpdated.UTC().Format(time.RFC3339)
	}
	return v
}

// NewRecordViews projects a slice of records, preserving order.
func NewRecordViews(records []store.Record) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, NewRecordView(r))
	}
	return views
}
