package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RecordSummary is the per-record shape captured inside a snapshot.
type RecordSummary struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is an immutable point-in-time capture of an owner's active
// memories. Snapshots are append-only: created once per completed session,
// never mutated or deleted.
type Snapshot struct {
	ID             string
	OwnerID        string
	SessionID      string
	MemoryContext  []RecordSummary
	SessionSummary string
	CreatedAt      time.Time
}

// CreateSnapshot inserts a snapshot of the given record summaries.
func (db *DB) CreateSnapshot(ctx context.Context, ownerID, sessionID string, records []RecordSummary, summary string, now time.Time) (*Snapshot, error) {
	if records == nil {
		records = []RecordSummary{}
	}
	contextJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal memory context: %w", err)
	}

	s := &Snapshot{
		ID:             db.newID(),
		OwnerID:        ownerID,
		SessionID:      sessionID,
		MemoryContext:  records,
		SessionSummary: summary,
		CreatedAt:      now,
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO memory_snapshots (id, owner_id, session_id, memory_context, session_summary, created_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?)
	`, s.ID, s.OwnerID, s.SessionID, string(contextJSON), s.SessionSummary, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return s, nil
}

// GetSnapshot returns a snapshot by ID, or nil if not found.
func (db *DB) GetSnapshot(id string) (*Snapshot, error) {
	s, err := scanSnapshot(db.QueryRow(`
		SELECT id, owner_id, session_id, memory_context, session_summary, created_at
		FROM memory_snapshots WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &s, nil
}

// ListSnapshots returns an owner's snapshots, newest first.
func (db *DB) ListSnapshots(ownerID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, owner_id, session_id, memory_context, session_summary, created_at
		FROM memory_snapshots WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSnapshot(row interface{ Scan(...any) error }) (Snapshot, error) {
	var s Snapshot
	var sessionID sql.NullString
	var contextJSON string
	var created int64
	err := row.Scan(&s.ID, &s.OwnerID, &sessionID, &contextJSON, &s.SessionSummary, &created)
	if err != nil {
		return Snapshot{}, err
	}
	s.SessionID = sessionID.String
	s.CreatedAt = time.UnixMilli(created)
	if err := json.Unmarshal([]byte(contextJSON), &s.MemoryContext); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal memory context: %w", err)
	}
	return s, nil
}
