package store

import (
	"fmt"
	"time"
)

// OwnerStats summarizes an owner's active memory set.
type OwnerStats struct {
	TotalMemories  int            `json:"total_memories"`
	ByCategory     map[string]int `json:"by_category"`
	HighConfidence int            `json:"high_confidence"`
	RecentMemories int            `json:"recent_memories"`
}

// Stats returns summary counts over an owner's active records.
// HighConfidence counts records at confidence >= 0.8; RecentMemories counts
// records updated within the last 7 days of now.
func (db *DB) Stats(ownerID string, now time.Time) (*OwnerStats, error) {
	records, err := db.ListActive(ownerID)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	s := &OwnerStats{ByCategory: make(map[string]int)}
	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, r := range records {
		s.TotalMemories++
		s.ByCategory[r.Category]++
		if r.Confidence >= 0.8 {
			s.HighConfidence++
		}
		if !r.LastUpdated.IsZero() && r.LastUpdated.After(weekAgo) {
			s.RecentMemories++
		}
	}
	return s, nil
}
