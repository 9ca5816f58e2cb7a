// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver — the closest thing a server process has to browser local
// storage.
//
// Two drivers are registered by the blank imports below and the config
// picks one by name:
//
//	"sqlite3" — github.com/mattn/go-sqlite3, wraps the C library (needs cgo)
//	"sqlite"  — modernc.org/sqlite, a pure Go translation (no cgo)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aanand-mishra/student-roster/internal/storage"

	// Blank imports: side-effect only (each registers its driver name).
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Ensure SQLite implements storage.Storage
var _ storage.Storage = (*SQLite)(nil)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at path with the named driver, creates
// the entries table if it does not already exist, and returns a
// ready-to-use *SQLite.
func New(driver, path string) (*SQLite, error) {
	// Create the parent directory so a fresh checkout can start without
	// any manual setup.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name and data source name (DSN).
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every
	// startup. If the table already exists nothing happens.
	//
	// Schema:
	//   key   — entry name, e.g. "students"
	//   value — the encoded entry, rewritten in full on every change
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close closes the database connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Get fetches the value stored under key.
//
// QueryRow does NOT return an error for "no match" — the error surfaces
// only when Scan is called, as sql.ErrNoRows. We translate it to the
// backend-neutral storage.ErrNotFound so callers never import database/sql.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT value FROM entries WHERE key = ? LIMIT 1",
	)
	if err != nil {
		return nil, fmt.Errorf("Get: prepare: %w", err)
	}
	defer stmt.Close()

	var value []byte
	err = stmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: scan: %w", err)
	}

	return value, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Set upserts a single entry.
//
// ON CONFLICT ... DO UPDATE turns the INSERT into an UPDATE when the key
// already exists, so the caller never needs to know whether this is the
// first write.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMany(ctx, map[string][]byte{key: value})
}

// ─────────────────────────────────────────────────────────────────────────────
// SetMany upserts every entry inside one transaction: either all entries
// are written or none are.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) SetMany(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SetMany: begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("SetMany: prepare: %w", err)
	}
	defer stmt.Close()

	for key, value := range entries {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("SetMany: exec %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SetMany: commit: %w", err)
	}

	return nil
}
