package testsupport

import (
	"context"
	"testing"

	"harvester/internal/config"
	"harvester/internal/state"
)

// MustOpenStore opens a state.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	store, err := state.OpenConfig(cfg)
	if err != nil {
		t.Fatalf("state.OpenConfig: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustStatus fetches id and fails the test unless it exists with the wanted status.
func MustStatus(t testing.TB, store *state.Store, id string, want state.Status) *state.Item {
	t.Helper()

	item, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get(%q): %v", id, err)
	}
	if item == nil {
		t.Fatalf("expected record for %q", id)
	}
	if item.Status != want {
		t.Fatalf("status for %q: got %q want %q", id, item.Status, want)
	}
	return item
}

// MustCheckpoint returns the checkpoint value under key, failing when it is absent.
func MustCheckpoint(t testing.TB, store *state.Store, key string) string {
	t.Helper()

	value, ok, err := store.GetCheckpoint(context.Background(), key)
	if err != nil {
		t.Fatalf("store.GetCheckpoint(%q): %v", key, err)
	}
	if !ok {
		t.Fatalf("expected checkpoint %q", key)
	}
	return value
}
