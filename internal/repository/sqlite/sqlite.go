// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, the pure-Go driver — no CGo, so the binary
// cross-compiles anywhere Go does).
//
// stashd is a single-process server, which is exactly the deployment shape
// SQLite is made for: one file, WAL mode for concurrent reads during writes,
// ":memory:" for tests.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql at init time.
	_ "modernc.org/sqlite"
)

// DB owns the connection pool; the per-table repositories hang off it.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for an in-memory database),
// configures it and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permissions now instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows reads to proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Off by default in SQLite; shared_items references items and accounts.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent
// across restarts.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_github_id
			ON accounts(github_id) WHERE github_id != 0;
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES accounts(id),
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			url        TEXT,
			content    TEXT,
			image_url  TEXT,
			is_saved   INTEGER NOT NULL DEFAULT 0,
			is_shared  INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_items_user_created
			ON items(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating items table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS shared_items (
			id          TEXT PRIMARY KEY,
			item_id     TEXT NOT NULL REFERENCES items(id),
			shared_by   TEXT NOT NULL REFERENCES accounts(id),
			shared_with TEXT NOT NULL REFERENCES accounts(id),
			shared_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(item_id, shared_with)
		);
		CREATE INDEX IF NOT EXISTS idx_shared_items_recipient
			ON shared_items(shared_with, shared_at);
	`)
	if err != nil {
		return fmt.Errorf("creating shared_items table: %w", err)
	}

	return nil
}
