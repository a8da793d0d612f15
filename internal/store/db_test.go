package store

import (
	"sync"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion = %d, want 2", v)
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{"schema_versions", "memories", "memory_snapshots"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMemoriesConstraints(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Valid insert
	_, err = db.Exec(`
		INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
			source_type, first_mentioned, mention_count, is_active, is_sensitive)
		VALUES ('m1', 'u1', 'interests', 'k', 'v', 0.8, 'conversation', 1000, 1, 1, 0)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Invalid category
	_, err = db.Exec(`
		INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
			source_type, first_mentioned, mention_count, is_active, is_sensitive)
		VALUES ('m2', 'u1', 'nonsense', 'k', 'v', 0.8, 'conversation', 1000, 1, 1, 0)
	`)
	if err == nil {
		t.Error("expected error for invalid category, got nil")
	}

	// Confidence out of range
	_, err = db.Exec(`
		INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
			source_type, first_mentioned, mention_count, is_active, is_sensitive)
		VALUES ('m3', 'u1', 'interests', 'k', 'v', 1.5, 'conversation', 1000, 1, 1, 0)
	`)
	if err == nil {
		t.Error("expected error for confidence > 1, got nil")
	}

	// Zero mention count
	_, err = db.Exec(`
		INSERT INTO memories (id, owner_id, category, memory_key, memory_value, confidence,
			source_type, first_mentioned, mention_count, is_active, is_sensitive)
		VALUES ('m4', 'u1', 'interests', 'k', 'v', 0.8, 'conversation', 1000, 0, 1, 0)
	`)
	if err == nil {
		t.Error("expected error for mention_count = 0, got nil")
	}
}

func TestNewIDMonotonicFormat(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	a, b := db.newID(), db.newID()
	if len(a) != 26 || len(b) != 26 {
		t.Errorf("ULID length = %d, %d, want 26", len(a), len(b))
	}
	if a == b {
		t.Error("consecutive IDs collided")
	}
}

func TestNewIDConcurrent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	const workers = 8
	const perWorker = 2000

	ids := make([][]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				ids[i] = append(ids[i], db.newID())
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers*perWorker)
	for _, batch := range ids {
		for _, id := range batch {
			if len(id) != 26 {
				t.Fatalf("ULID length = %d, want 26", len(id))
			}
			if seen[id] {
				t.Fatalf("duplicate ID %s", id)
			}
			seen[id] = true
		}
	}
}
