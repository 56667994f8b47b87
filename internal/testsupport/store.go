package testsupport

import (
	"context"
	"testing"

	"notesmith/internal/config"
	"notesmith/internal/queue"
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

// NewJob creates a pending job for ref.
func NewJob(t testing.TB, store *queue.Store, ref string) *queue.Job {
	t.Helper()

	job, err := store.Create(context.Background(), queue.JobInit{SourceRef: ref})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

// MustUpdate applies patch and fails the test on error.
func MustUpdate(t testing.TB, store *queue.Store, id string, patch queue.Patch) *queue.Job {
	t.Helper()

	job, err := store.Update(context.Background(), id, patch)
	if err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	return job
}
