// Package storage defines the Storage interface — a contract that any
// persistence backend must satisfy to work with this application.
//
// The roster is persisted the way a browser app keeps state in local
// storage: a handful of named entries, each holding one encoded value that
// is read once at startup and rewritten in full after every change.
//
// WHY AN INTERFACE?
// ─────────────────
// The roster store should not know or care where its bytes live. By
// depending only on this interface:
//
//   - Switching backends = implement the interface, change one line in
//     the serve command. Zero roster changes.
//
//   - Writing tests = pass the in-memory implementation.
//     No database file needed for unit tests.
package storage

import (
	"context"
	"errors"
)

// Keys of the two persisted entries.
const (
	KeyStudents    = "students"
	KeyTotalPoints = "totalPoints"
)

// ErrNotFound is returned by Get when no entry exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// Storage is the key-value contract.
type Storage interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// SetMany stores every entry in a single atomic write.
	SetMany(ctx context.Context, entries map[string][]byte) error

	// Close releases any resources held by the backend.
	Close() error
}
