// Package db opens the orchestrator's SQLite file and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

var pragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA synchronous = NORMAL;", // the journal can lose its last entries on power loss, never the file
	"PRAGMA busy_timeout = 5000;",
}

// migrations are applied in order; PRAGMA user_version records how many ran.
// Append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS process_records (
    name TEXT PRIMARY KEY,
    pid INTEGER NOT NULL,
    path TEXT NOT NULL,
    status TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS display_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    program TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    meta TEXT
);`,
	`CREATE INDEX IF NOT EXISTS idx_display_events_occurred_at ON display_events (occurred_at);`,
	`CREATE INDEX IF NOT EXISTS idx_display_events_type ON display_events (type, occurred_at);`,
}

// InitDB opens or creates the SQLite file at path and migrates it.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// one writer: the orchestrator loop and the supervisor share the file
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SchemaVersion reports how many migrations have been applied.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func migrate(db *sql.DB) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this binary (%d)", current, len(migrations))
	}
	if current == len(migrations) {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := current; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	// PRAGMA does not take bind parameters
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", len(migrations))); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
