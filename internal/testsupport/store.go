package testsupport

import (
	"context"
	"testing"

	"triage/internal/config"
	"triage/internal/queue"
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

// NewItem inserts a pending feedback item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, feedbackID string, source queue.Source, text string) *queue.Item {
	t.Helper()

	item, inserted, err := store.NewItem(context.Background(), feedbackID, source, text, "", "test-batch")
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	if !inserted {
		t.Fatalf("store.NewItem: feedback %s already present", feedbackID)
	}
	return item
}
