package testsupport

import (
	"context"
	"testing"

	"folio/internal/checkpoint"
	"folio/internal/config"
)

// MustOpenStore opens a checkpoint store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *checkpoint.Store {
	t.Helper()

	store, err := checkpoint.Open(cfg)
	if err != nil {
		t.Fatalf("checkpoint.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedPages registers 1..count in the checkpoint store.
func SeedPages(t testing.TB, store *checkpoint.Store, count int) {
	t.Helper()

	pages := make([]int, 0, count)
	for i := 1; i <= count; i++ {
		pages = append(pages, i)
	}
	if err := store.EnsurePages(context.Background(), pages); err != nil {
		t.Fatalf("EnsurePages: %v", err)
	}
}
