// Package sqlite is the on-device store: the local ledger cache, the credit
// audit trail, the notification inbox, task lists and focus history, all in
// one SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "aura.db"

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open creates dir if needed, opens dir/aura.db in WAL mode and applies the
// schema.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := filepath.Join(dir, FileName) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer; SQLite serializes anyway and this avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	return db.db.Close()
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements, one per string (SQLite executes
// one at a time). Every statement is idempotent.
func Migrations() []string {
	return []string{
		// Local ledger cache: one JSON document per key.
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Credit audit trail
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			type       TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			balance    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_entries(user_id, timestamp)`,

		// Notification inbox
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			shown      INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(user_id, shown, created_at)`,

		// Task list
		`CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			text         TEXT NOT NULL,
			completed    INTEGER NOT NULL DEFAULT 0,
			rewarded     INTEGER NOT NULL DEFAULT 0,
			due_date     TEXT NOT NULL DEFAULT '',
			due_time     TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, created_at)`,

		// Focus session history
		`CREATE TABLE IF NOT EXISTS session_history (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			label        TEXT NOT NULL,
			minutes      REAL NOT NULL,
			completed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_user ON session_history(user_id, completed_at)`,
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
