package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: per-owner long-term memory records",
		SQL: `
CREATE TABLE memories (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL,
    category        TEXT NOT NULL CHECK (category IN ('personal_info', 'relationships', 'interests', 'challenges', 'goals', 'preferences')),
    memory_key      TEXT NOT NULL,
    memory_value    TEXT NOT NULL,
    confidence      REAL NOT NULL DEFAULT 0.5 CHECK (confidence >= 0.0 AND confidence <= 1.0),
    source_type     TEXT NOT NULL DEFAULT 'conversation',
    first_mentioned INTEGER NOT NULL,
    last_updated    INTEGER,
    mention_count   INTEGER NOT NULL DEFAULT 1 CHECK (mention_count >= 1),
    is_active       INTEGER NOT NULL DEFAULT 1,
    is_sensitive    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_memories_owner_active   ON memories(owner_id, is_active);
CREATE INDEX idx_memories_owner_category ON memories(owner_id, category, is_active);
CREATE INDEX idx_memories_owner_key      ON memories(owner_id, category, memory_key);
CREATE INDEX idx_memories_updated        ON memories(last_updated DESC);
`,
	},
	{
		Version:     2,
		Description: "memory_snapshots: append-only per-session captures",
		SQL: `
CREATE TABLE memory_snapshots (
    id              TEXT PRIMARY KEY,
    owner_id        TEXT NOT NULL,
    session_id      TEXT,
    memory_context  TEXT NOT NULL,
    session_summary TEXT,
    created_at      INTEGER NOT NULL
);

CREATE INDEX idx_snapshots_owner ON memory_snapshots(owner_id, created_at DESC);
`,
	},
}

// migrate applies all pending migrations inside transactions.
func (db *DB) migrate() error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (unixepoch() * 1000)
		)
	`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_versions (version, description) VALUES (?, ?)`,
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 if none.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}
