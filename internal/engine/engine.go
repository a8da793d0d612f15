// Package engine implements the memory relevance and retrieval engine:
// extraction of structured facts from free-form text, merge-on-write storage,
// factual/temporal classification, age-based decay, contextual scoring, and
// prompt formatting.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/journalkit/mnemo/internal/store"
)

// Engine is the memory engine. It holds no mutable state of its own; the only
// long-lived state is the persisted record table. All operations are
// synchronous and single-call.
type Engine struct {
	db  *store.DB
	log *log.Logger
	pol Policy
}

// New constructs an Engine. A nil logger discards output.
func New(db *store.DB, logger *log.Logger, pol Policy) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{db: db, log: logger, pol: pol}
}

// DB exposes the underlying store for glue layers (server, CLI).
func (e *Engine) DB() *store.DB { return e.db }

// Store persists a batch of candidates for one owner atomically. A
// persistence failure rolls the whole batch back and surfaces
// store.ErrStorageFailure; callers treat memory persistence as best-effort.
func (e *Engine) Store(ctx context.Context, ownerID string, cands []store.Candidate, now time.Time) ([]store.Record, error) {
	records, err := e.db.UpsertBatch(ctx, ownerID, cands, now, e.pol.upsertPolicy())
	if err != nil {
		e.log.Warn("memory batch not persisted", "owner", ownerID, "candidates", len(cands), "err", err)
		return nil, err
	}
	e.log.Debug("stored memory batch", "owner", ownerID, "candidates", len(cands), "records", len(records))
	return records, nil
}

// ExtractAndStore runs extraction and persists the result in one call.
func (e *Engine) ExtractAndStore(ctx context.Context, ownerID, text, sourceType string, now time.Time) ([]store.Record, error) {
	cands := e.Extract(text, ownerID, sourceType)
	if len(cands) == 0 {
		return nil, nil
	}
	return e.Store(ctx, ownerID, cands, now)
}

// CreateSnapshot captures the owner's active records into an append-only
// snapshot. One-shot; the snapshot is never mutated afterwards.
func (e *Engine) CreateSnapshot(ctx context.Context, ownerID, sessionID string, now time.Time) (*store.Snapshot, error) {
	records, err := e.db.ListActive(ownerID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	summaries := make([]store.RecordSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, store.RecordSummary{
			ID:         r.ID,
			Category:   r.Category,
			Key:        r.Key,
			Value:      r.Value,
			Confidence: r.Confidence,
		})
	}

	summary := fmt.Sprintf("Memory snapshot: %d active memories", len(summaries))
	return e.db.CreateSnapshot(ctx, ownerID, sessionID, summaries, summary, now)
}

// SessionResult reports what ProcessSession did.
type SessionResult struct {
	ExtractedCount int    `json:"extracted_count"`
	StoredCount    int    `json:"stored_count"`
	SnapshotID     string `json:"snapshot_id"`
}

// ProcessSession runs the full memory pipeline for a completed session: the
// session's user utterances are joined, extracted, stored, and captured in a
// snapshot. Storage failures are absorbed; the snapshot still records
// whatever was active.
func (e *Engine) ProcessSession(ctx context.Context, ownerID, sessionID string, texts []string, now time.Time) (*SessionResult, error) {
	var joined string
	for i, t := range texts {
		if i > 0 {
			joined += " "
		}
		joined += t
	}

	cands := e.Extract(joined, ownerID, store.SourceDiarySession)
	res := &SessionResult{ExtractedCount: len(cands)}

	if len(cands) > 0 {
		stored, err := e.Store(ctx, ownerID, cands, now)
		if err == nil {
			res.StoredCount = len(stored)
		}
	}

	snap, err := e.CreateSnapshot(ctx, ownerID, sessionID, now)
	if err != nil {
		return res, err
	}
	res.SnapshotID = snap.ID
	return res, nil
}

// Stats returns summary counts over the owner's active memory set.
func (e *Engine) Stats(ownerID string, now time.Time) (*store.OwnerStats, error) {
	return e.db.Stats(ownerID, now)
}
