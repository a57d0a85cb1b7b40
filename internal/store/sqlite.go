package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tonitangpotato/engramai/internal/engerr"
)

// schemaVersion is checked against the schema_version row at Open. A
// mismatch means the on-disk file was written by an incompatible version
// of this package and is reported as corruption rather than silently
// migrated further.
const schemaVersion = 1

// DB wraps the SQLite connection with initialization logic.
type DB struct {
	*sql.DB
}

// Open creates or opens the SQLite database at the given path, runs schema
// initialization, and configures WAL mode for concurrent reads. A single
// writer connection is enforced via SetMaxOpenConns(1), matching the
// store's single-writer/multi-reader concurrency model.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := checkSchemaVersion(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// checkSchemaVersion verifies (and on first open, seeds) the
// schema_version row. A mismatch is reported via the caller as a
// Corruption-kind error (spec.md §7).
func checkSchemaVersion(db *sql.DB) error {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = db.Exec(`INSERT INTO schema_version (id, version) VALUES (1, ?)`, schemaVersion)
		if err != nil {
			return fmt.Errorf("seed schema_version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	if version != schemaVersion {
		return engerr.Corruption("open", fmt.Errorf("schema version mismatch: on-disk version %d, expected %d", version, schemaVersion))
	}
	return nil
}

// runMigrations applies incremental, idempotent schema changes. Every
// migration here is safe to re-run on every open.
func runMigrations(db *sql.DB) error {
	hasPinned, err := columnExists(db, "memories", "pinned")
	if err != nil {
		return fmt.Errorf("check pinned column: %w", err)
	}
	if !hasPinned {
		migrations := []string{
			`ALTER TABLE memories ADD COLUMN pinned INTEGER NOT NULL DEFAULT 0`,
		}
		for _, m := range migrations {
			if _, err := db.Exec(m); err != nil {
				return fmt.Errorf("run migration v1: %w", err)
			}
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS schema_version (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
  id TEXT PRIMARY KEY,
  content TEXT NOT NULL,
  memory_type TEXT NOT NULL,
  importance REAL NOT NULL DEFAULT 0.5,
  working_strength REAL NOT NULL DEFAULT 0.0,
  core_strength REAL NOT NULL DEFAULT 0.0,
  stability REAL NOT NULL DEFAULT 1.0,
  created_at REAL NOT NULL,
  last_accessed_at REAL NOT NULL,
  access_count INTEGER NOT NULL DEFAULT 0,
  layer TEXT NOT NULL DEFAULT 'working',
  pinned INTEGER NOT NULL DEFAULT 0,
  source TEXT,
  tags TEXT,
  content_hash TEXT NOT NULL,
  contradicted_by TEXT REFERENCES memories(id) ON DELETE SET NULL,
  contradicts TEXT REFERENCES memories(id) ON DELETE SET NULL,
  entities TEXT
);

CREATE INDEX IF NOT EXISTS idx_memories_layer ON memories(layer);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_content_hash ON memories(content_hash);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_contradicted_by ON memories(contradicted_by);
CREATE INDEX IF NOT EXISTS idx_memories_pinned ON memories(pinned);

CREATE TABLE IF NOT EXISTS access_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  memory_id TEXT NOT NULL,
  accessed_at REAL NOT NULL,
  FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_access_records_memory_id ON access_records(memory_id);

CREATE TABLE IF NOT EXISTS hebbian_links (
  source_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  strength REAL NOT NULL DEFAULT 0.0,
  coactivation_count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (source_id, target_id),
  FOREIGN KEY (source_id) REFERENCES memories(id) ON DELETE CASCADE,
  FOREIGN KEY (target_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_hebbian_links_source ON hebbian_links(source_id);
CREATE INDEX IF NOT EXISTS idx_hebbian_links_target ON hebbian_links(target_id);

CREATE TABLE IF NOT EXISTS entities (
  token TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS entity_memories (
  token TEXT NOT NULL,
  memory_id TEXT NOT NULL,
  PRIMARY KEY (token, memory_id),
  FOREIGN KEY (token) REFERENCES entities(token) ON DELETE CASCADE,
  FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entity_memories_memory_id ON entity_memories(memory_id);

CREATE TABLE IF NOT EXISTS entity_adjacency (
  source_token TEXT NOT NULL,
  target_token TEXT NOT NULL,
  count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (source_token, target_token),
  FOREIGN KEY (source_token) REFERENCES entities(token) ON DELETE CASCADE,
  FOREIGN KEY (target_token) REFERENCES entities(token) ON DELETE CASCADE
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	// FTS5 virtual table and sync triggers mirror memories.content for the
	// lexical candidate-generation stage (spec.md §4.7 step 1).
	fts := `
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
  content, tags,
  content='memories', content_rowid='rowid'
);
`
	if _, err := db.Exec(fts); err != nil {
		return fmt.Errorf("create fts table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
  INSERT INTO memories_fts(rowid, content, tags)
  VALUES (NEW.rowid, NEW.content, NEW.tags);
END;`,
		`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
  INSERT INTO memories_fts(memories_fts, rowid, content, tags)
  VALUES ('delete', OLD.rowid, OLD.content, OLD.tags);
END;`,
		`CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
  INSERT INTO memories_fts(memories_fts, rowid, content, tags)
  VALUES ('delete', OLD.rowid, OLD.content, OLD.tags);
  INSERT INTO memories_fts(rowid, content, tags)
  VALUES (NEW.rowid, NEW.content, NEW.tags);
END;`,
	}

	for _, t := range triggers {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}

	return nil
}

// MemoryCount returns the total number of memories in the database.
func (db *DB) MemoryCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&count)
	return count, err
}

// columnExists checks if a column exists in a table. It properly closes the
// rows cursor before returning, avoiding deadlocks with MaxOpenConns(1).
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(
		fmt.Sprintf("SELECT name FROM pragma_table_info('%s') WHERE name = ?", table),
		column,
	)
	if err != nil {
		return false, err
	}
	found := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found, nil
}
