package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Memory categories. The set is fixed; the schema enforces it.
const (
	CategoryPersonalInfo  = "personal_info"
	CategoryRelationships = "relationships"
	CategoryInterests     = "interests"
	CategoryChallenges    = "challenges"
	CategoryGoals         = "goals"
	CategoryPreferences   = "preferences"
)

// ValidCategories is the allowed category set.
var ValidCategories = map[string]bool{
	CategoryPersonalInfo:  true,
	CategoryRelationships: true,
	CategoryInterests:     true,
	CategoryChallenges:    true,
	CategoryGoals:         true,
	CategoryPreferences:   true,
}

// Source provenance tags.
const (
	SourceConversation = "conversation"
	SourceDiarySession = "diary_session"
	SourceCorrection   = "user_correction"
)

// ErrStorageFailure signals an unrecoverable persistence error after rollback.
// Callers treat memory persistence as best-effort and must not fail the
// user-facing turn on it.
var ErrStorageFailure = errors.New("memory batch write failed")

// Record is a stored, categorized fact about a user.
type Record struct {
	ID             string
	OwnerID        string
	Category       string
	Key            string
	Value          string
	Confidence     float64
	SourceType     string
	FirstMentioned time.Time
	LastUpdated    time.Time // zero means unknown
	MentionCount   int
	IsActive       bool
	IsSensitive    bool
}

// Candidate is an extracted fact not yet persisted.
type Candidate struct {
	Category   string
	Key        string
	Value      string
	Confidence float64
	SourceType string
}

// UpsertPolicy carries the tunables the upsert path needs.
type UpsertPolicy struct {
	// MergeOverlap is the token-overlap ratio above which two values in the
	// same category are treated as the same fact.
	MergeOverlap float64
	// ConfidenceStep is added on each reinforcing mention, capped at 1.0.
	ConfidenceStep float64
}

// DefaultUpsertPolicy returns the hand-tuned production values.
func DefaultUpsertPolicy() UpsertPolicy {
	return UpsertPolicy{MergeOverlap: 0.7, ConfidenceStep: 0.1}
}

const recordColumns = `id, owner_id, category, memory_key, memory_value, confidence,
	source_type, first_mentioned, last_updated, mention_count, is_active, is_sensitive`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var r Record
	var first int64
	var updated sql.NullInt64
	var active, sensitive int
	err := row.Scan(&r.ID, &r.OwnerID, &r.Category, &r.Key, &r.Value, &r.Confidence,
		&r.SourceType, &first, &updated, &r.MentionCount, &active, &sensitive)
	if err != nil {
		return Record{}, err
	}
	r.FirstMentioned = time.UnixMilli(first)
	if updated.Valid {
		r.LastUpdated = time.UnixMilli(updated.Int64)
	}
	r.IsActive = active != 0
	r.IsSensitive = sensitive != 0
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRecord returns a record by ID, or nil if not found.
func (db *DB) GetRecord(id string) (*Record, error) {
	r, err := scanRecord(db.QueryRow(
		`SELECT `+recordColumns+` FROM memories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &r, nil
}

// ListActive returns all active records for an owner, sorted by confidence
// descending then recency descending. This is the retrieval pre-sort.
func (db *DB) ListActive(ownerID string) ([]Record, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE owner_id = ? AND is_active = 1
		ORDER BY confidence DESC, last_updated DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListActiveByCategory returns active records for an owner in one category.
func (db *DB) ListActiveByCategory(ownerID, category string) ([]Record, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE owner_id = ? AND category = ? AND is_active = 1
		ORDER BY confidence DESC, last_updated DESC
	`, ownerID, category)
	if err != nil {
		return nil, fmt.Errorf("list by category: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Deactivate soft-deletes a record. The row is retained for audit.
func (db *DB) Deactivate(id string) error {
	res, err := db.Exec(`UPDATE memories SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deactivate: no record %s", id)
	}
	return nil
}

// SetSensitive flags a record for downstream redaction policy.
func (db *DB) SetSensitive(id string, sensitive bool) error {
	v := 0
	if sensitive {
		v = 1
	}
	if _, err := db.Exec(`UPDATE memories SET is_sensitive = ? WHERE id = ?`, v, id); err != nil {
		return fmt.Errorf("set sensitive: %w", err)
	}
	return nil
}

// UpsertBatch persists a batch of candidates for one owner inside a single
// transaction. Each candidate merges into an existing active record when an
// exact (category, key) match exists, or when a same-category record's value
// shares more than pol.MergeOverlap of its tokens. A merge overwrites the
// value, bumps confidence by pol.ConfidenceStep (capped at 1.0), increments
// mention_count, and refreshes last_updated. Any failure rolls the whole
// batch back and returns ErrStorageFailure.
func (db *DB) UpsertBatch(ctx context.Context, ownerID string, cands []Candidate, now time.Time, pol UpsertPolicy) ([]Record, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStorageFailure, err)
	}

	stored, err := db.upsertInTx(tx, ownerID, cands, now, pol)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrStorageFailure, err)
	}
	return stored, nil
}

func (db *DB) upsertInTx(tx *sql.Tx, ownerID string, cands []Candidate, now time.Time, pol UpsertPolicy) ([]Record, error) {
	stored := make([]Record, 0, len(cands))
	nowMs := now.UnixMilli()

	for _, c := range cands {
		if !ValidCategories[c.Category] {
			return nil, fmt.Errorf("invalid category %q", c.Category)
		}

		target, err := findMergeTarget(tx, ownerID, c, pol.MergeOverlap)
		if err != nil {
			return nil, err
		}

		if target != nil {
			target.Value = c.Value
			target.Confidence = capConfidence(target.Confidence + pol.ConfidenceStep)
			target.MentionCount++
			target.LastUpdated = now
			if _, err := tx.Exec(`
				UPDATE memories
				SET memory_value = ?, confidence = ?, mention_count = ?, last_updated = ?
				WHERE id = ?
			`, target.Value, target.Confidence, target.MentionCount, nowMs, target.ID); err != nil {
				return nil, fmt.Errorf("merge record %s: %w", target.ID, err)
			}
			stored = append(stored, *target)
			continue
		}

		r := Record{
			ID:             db.newID(),
			OwnerID:        ownerID,
			Category:       c.Category,
			Key:            c.Key,
			Value:          c.Value,
			Confidence:     capConfidence(c.Confidence),
			SourceType:     c.SourceType,
			FirstMentioned: now,
			LastUpdated:    now,
			MentionCount:   1,
			IsActive:       true,
		}
		if r.SourceType == "" {
			r.SourceType = SourceConversation
		}
		if _, err := tx.Exec(`
			INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
				source_type, first_mentioned, last_updated, mention_count, is_active, is_sensitive)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 1, 0)
		`, r.ID, r.OwnerID, r.Category, r.Key, r.Value, r.Confidence,
			r.SourceType, nowMs, nowMs); err != nil {
			return nil, fmt.Errorf("insert record: %w", err)
		}
		stored = append(stored, r)
	}

	return stored, nil
}

// findMergeTarget looks for an existing active record the candidate should
// merge into: exact (category, key) first, then value similarity within the
// same category.
func findMergeTarget(tx *sql.Tx, ownerID string, c Candidate, mergeOverlap float64) (*Record, error) {
	r, err := scanRecord(tx.QueryRow(`
		SELECT `+recordColumns+` FROM memories
		WHERE owner_id = ? AND category = ? AND memory_key = ? AND is_active = 1
	`, ownerID, c.Category, c.Key))
	if err == nil {
		return &r, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find exact match: %w", err)
	}

	rows, err := tx.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE owner_id = ? AND category = ? AND is_active = 1
	`, ownerID, c.Category)
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	defer rows.Close()

	siblings, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	for i := range siblings {
		if TokenOverlapRatio(siblings[i].Value, c.Value) > mergeOverlap {
			return &siblings[i], nil
		}
	}
	return nil, nil
}

// UpdateRelationship applies a correction of the form "<person> is my
// <relation>". An existing active relationships record mentioning the person
// is rewritten in place; otherwise a new record is inserted. Either way the
// record ends at the correction confidence.
func (db *DB) UpdateRelationship(ctx context.Context, ownerID, person, relation string, now time.Time, confidence float64) (*Record, error) {
	value := titleCase(person) + " is my " + strings.ToLower(relation)
	nowMs := now.UnixMilli()

	rows, err := db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM memories
		WHERE owner_id = ? AND category = ? AND is_active = 1
	`, ownerID, CategoryRelationships)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	existing, err := scanRecords(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(person)
	for i := range existing {
		if !strings.Contains(strings.ToLower(existing[i].Value), needle) {
			continue
		}
		r := existing[i]
		r.Value = value
		r.Confidence = confidence
		r.LastUpdated = now
		if _, err := db.ExecContext(ctx, `
			UPDATE memories SET memory_value = ?, confidence = ?, last_updated = ?
			WHERE id = ?
		`, r.Value, r.Confidence, nowMs, r.ID); err != nil {
			return nil, fmt.Errorf("correct relationship: %w", err)
		}
		return &r, nil
	}

	r := Record{
		ID:             db.newID(),
		OwnerID:        ownerID,
		Category:       CategoryRelationships,
		Key:            "relationships_" + strings.ToLower(person) + "_" + strings.ToLower(relation),
		Value:          value,
		Confidence:     confidence,
		SourceType:     SourceCorrection,
		FirstMentioned: now,
		LastUpdated:    now,
		MentionCount:   1,
		IsActive:       true,
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
			source_type, first_mentioned, last_updated, mention_count, is_active, is_sensitive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 1, 0)
	`, r.ID, r.OwnerID, r.Category, r.Key, r.Value, r.Confidence,
		r.SourceType, nowMs, nowMs); err != nil {
		return nil, fmt.Errorf("insert corrected relationship: %w", err)
	}
	return &r, nil
}

// CorrectValue handles an explicit external correction outside the
// relationships category: the stale record is deactivated and a replacement
// inserted with user_correction provenance.
func (db *DB) CorrectValue(ctx context.Context, ownerID, oldValue, newValue, category string, now time.Time, confidence float64) (*Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM memories
		WHERE owner_id = ? AND category = ? AND is_active = 1
	`, ownerID, category)
	if err != nil {
		return nil, fmt.Errorf("list for correction: %w", err)
	}
	existing, err := scanRecords(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(oldValue)
	for i := range existing {
		if strings.Contains(strings.ToLower(existing[i].Value), needle) {
			if err := db.Deactivate(existing[i].ID); err != nil {
				return nil, err
			}
		}
	}

	nowMs := now.UnixMilli()
	r := Record{
		ID:             db.newID(),
		OwnerID:        ownerID,
		Category:       category,
		Key:            category + "_" + strings.ReplaceAll(strings.ToLower(newValue), " ", "_"),
		Value:          newValue,
		Confidence:     confidence,
		SourceType:     SourceCorrection,
		FirstMentioned: now,
		LastUpdated:    now,
		MentionCount:   1,
		IsActive:       true,
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
			source_type, first_mentioned, last_updated, mention_count, is_active, is_sensitive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 1, 0)
	`, r.ID, r.OwnerID, r.Category, r.Key, r.Value, r.Confidence,
		r.SourceType, nowMs, nowMs); err != nil {
		return nil, fmt.Errorf("insert correction: %w", err)
	}
	return &r, nil
}

func capConfidence(c float64) float64 {
	if c > 1.0 {
		return 1.0
	}
	if c < 0 {
		return 0
	}
	return c
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
