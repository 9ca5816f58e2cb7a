package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aanand-mishra/student-roster/internal/storage"
)

func TestSQLite(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "nested", "roster.db")
			store, err := New(driver, dbPath)
			if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
				t.Skipf("%s driver needs cgo: %v", driver, err)
			}
			if err != nil {
				t.Fatalf("Failed to create store: %v", err)
			}
			defer store.Close()

			ctx := context.Background()

			t.Run("Get returns ErrNotFound for missing key", func(t *testing.T) {
				_, err := store.Get(ctx, storage.KeyStudents)
				if !errors.Is(err, storage.ErrNotFound) {
					t.Fatalf("Get() error = %v, want ErrNotFound", err)
				}
			})

			t.Run("Set then Get round-trips the value", func(t *testing.T) {
				if err := store.Set(ctx, storage.KeyTotalPoints, []byte("50")); err != nil {
					t.Fatalf("Set() error = %v", err)
				}

				got, err := store.Get(ctx, storage.KeyTotalPoints)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if string(got) != "50" {
					t.Errorf("Get() = %q, want %q", got, "50")
				}
			})

			t.Run("Set overwrites previous value", func(t *testing.T) {
				if err := store.Set(ctx, storage.KeyTotalPoints, []byte("75")); err != nil {
					t.Fatalf("Set() error = %v", err)
				}

				got, err := store.Get(ctx, storage.KeyTotalPoints)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if string(got) != "75" {
					t.Errorf("Get() = %q, want %q", got, "75")
				}
			})

			t.Run("SetMany writes every entry", func(t *testing.T) {
				err := store.SetMany(ctx, map[string][]byte{
					storage.KeyStudents:    []byte(`[]`),
					storage.KeyTotalPoints: []byte("0"),
				})
				if err != nil {
					t.Fatalf("SetMany() error = %v", err)
				}

				for key, want := range map[string]string{
					storage.KeyStudents:    "[]",
					storage.KeyTotalPoints: "0",
				} {
					got, err := store.Get(ctx, key)
					if err != nil {
						t.Fatalf("Get(%s) error = %v", key, err)
					}
					if string(got) != want {
						t.Errorf("Get(%s) = %q, want %q", key, got, want)
					}
				}
			})
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	first, err := New("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := first.Set(ctx, storage.KeyStudents, []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	first.Close()

	second, err := New("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, storage.KeyStudents)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[{"id":"a"}]` {
		t.Errorf("Get() = %q, want %q", got, `[{"id":"a"}]`)
	}
}
