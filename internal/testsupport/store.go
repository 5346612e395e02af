package testsupport

import (
	"context"
	"testing"

	"rosterforge/internal/config"
	"rosterforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBundle creates a new bundle item for tests using the provided store.
func NewBundle(t testing.TB, store *queue.Store, runID, character, path string) *queue.Item {
	t.Helper()

	item, err := store.NewBundle(context.Background(), runID, character, path)
	if err != nil {
		t.Fatalf("store.NewBundle: %v", err)
	}
	return item
}
