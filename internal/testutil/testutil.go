// Package testutil provides shared helpers for pipeline tests.
package testutil

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/fieldsync/fieldsync/internal/data"
)

// OpenTestStore opens a record store backed by a fresh SQLite file in a
// per-test temporary directory. The store is closed automatically when the
// test finishes.
func OpenTestStore(t *testing.T) *data.RecordRepo {
	t.Helper()
	return OpenTestStoreAt(t, filepath.Join(t.TempDir(), "records.db"))
}

// OpenTestStoreAt opens a record store at an explicit path, for tests that
// reopen the same database to simulate a process restart.
func OpenTestStoreAt(t *testing.T, path string) *data.RecordRepo {
	t.Helper()

	store, err := data.Open(path, data.RepoConfig{})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// RandomBytes returns n random bytes for attachment content.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("read random bytes: %v", err)
	}
	return buf
}
