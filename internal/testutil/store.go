package testutil

import (
	"testing"

	"github.com/nhle/taskmaster/internal/store"
)

// NewTestStore opens an in-memory notification log with all migrations applied.
// The store, app, cli and history tests record and read notifications through it.
// The store is closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening notification log: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing notification log: %v", err)
		}
	})

	return s
}
