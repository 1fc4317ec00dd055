// Package history provides a SQLite-backed record of completed backup
// cycles and restores, queryable from the operator surfaces.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/saveward/saveward/internal/engine"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cycles (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     DATETIME NOT NULL,
	trigger_kind   TEXT NOT NULL,
	duration_ms    INTEGER NOT NULL,
	worlds         INTEGER NOT NULL,
	files_archived INTEGER NOT NULL,
	rotations      INTEGER NOT NULL,
	pruned         INTEGER NOT NULL,
	failures       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS restores (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	restored_at DATETIME NOT NULL,
	world       TEXT NOT NULL,
	archive     TEXT NOT NULL,
	files       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at);
`

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies engine.Recorder at compile time.
var _ engine.Recorder = (*DB)(nil)

// Open opens (or creates) the history database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RecordCycle stores one completed cycle report.
func (db *DB) RecordCycle(r engine.CycleReport) error {
	_, err := db.conn.Exec(`
		INSERT INTO cycles (started_at, trigger_kind, duration_ms, worlds, files_archived, rotations, pruned, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Started.UTC(), r.Trigger, r.Duration.Milliseconds(), r.Worlds, r.FilesArchived, r.Rotations, r.Pruned, r.Failures)
	if err != nil {
		return fmt.Errorf("history: record cycle: %w", err)
	}
	return nil
}

// RecordRestore stores one completed restore report.
func (db *DB) RecordRestore(r engine.RestoreReport) error {
	_, err := db.conn.Exec(`
		INSERT INTO restores (restored_at, world, archive, files)
		VALUES (?, ?, ?, ?)
	`, time.Now().UTC(), r.World, r.Archive, r.Files)
	if err != nil {
		return fmt.Errorf("history: record restore: %w", err)
	}
	return nil
}

// CycleRow is one persisted cycle record.
type CycleRow struct {
	ID            int64
	Started       time.Time
	Trigger       string
	Duration      time.Duration
	Worlds        int
	FilesArchived int
	Rotations     int
	Pruned        int
	Failures      int
}

// RecentCycles returns the most recent cycles, newest first.
func (db *DB) RecentCycles(limit int) ([]CycleRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, trigger_kind, duration_ms, worlds, files_archived, rotations, pruned, failures
		FROM cycles ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var r CycleRow
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.Started, &r.Trigger, &durationMS,
			&r.Worlds, &r.FilesArchived, &r.Rotations, &r.Pruned, &r.Failures); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// RestoreRow is one persisted restore record.
type RestoreRow struct {
	ID       int64
	Restored time.Time
	World    string
	Archive  string
	Files    int
}

// RecentRestores returns the most recent restores, newest first.
func (db *DB) RecentRestores(limit int) ([]RestoreRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, restored_at, world, archive, files
		FROM restores ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent restores: %w", err)
	}
	defer rows.Close()

	var out []RestoreRow
	for rows.Next() {
		var r RestoreRow
		if err := rows.Scan(&r.ID, &r.Restored, &r.World, &r.Archive, &r.Files); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
