package state_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"harvester/internal/state"
	"harvester/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected readable database, got %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("unexpected missing tables: %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.SchemaVersion != 1 {
		t.Fatalf("unexpected schema version: %d", health.SchemaVersion)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := state.OpenConfig(cfg)
	if err != nil {
		t.Fatalf("OpenConfig failed: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", cfg.StateDBPath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := state.OpenConfig(cfg); !errors.Is(err, state.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestMarkSeenNeverDowngrades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created, err := store.MarkSeen(ctx, "a", []byte(`{"id":"a"}`))
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if !created {
		t.Fatal("expected first MarkSeen to create a record")
	}
	created, err = store.MarkSeen(ctx, "a", nil)
	if err != nil {
		t.Fatalf("second MarkSeen failed: %v", err)
	}
	if created {
		t.Fatal("expected second MarkSeen to be a no-op")
	}

	if err := store.UpsertProcessed(ctx, "a", state.StatusOK, "hash-a"); err != nil {
		t.Fatalf("UpsertProcessed failed: %v", err)
	}
	if _, err := store.MarkSeen(ctx, "a", nil); err != nil {
		t.Fatalf("MarkSeen after ok failed: %v", err)
	}

	item := testsupport.MustStatus(t, store, "a", state.StatusOK)
	if item.DetailRef != "hash-a" {
		t.Fatalf("unexpected detail ref: %q", item.DetailRef)
	}
	if string(item.Ref) != `{"id":"a"}` {
		t.Fatalf("expected ref snapshot to survive, got %q", item.Ref)
	}
}

func TestUpsertProcessedOverwrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.UpsertProcessed(ctx, "x", state.StatusOK, "h1"); err != nil {
		t.Fatalf("UpsertProcessed ok failed: %v", err)
	}
	first := testsupport.MustStatus(t, store, "x", state.StatusOK)

	if err := store.UpsertProcessed(ctx, "x", state.StatusError, ""); err != nil {
		t.Fatalf("UpsertProcessed error failed: %v", err)
	}
	second := testsupport.MustStatus(t, store, "x", state.StatusError)
	if second.DetailRef != "" {
		t.Fatalf("expected detail ref cleared, got %q", second.DetailRef)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Fatalf("updated_at went backwards: %v < %v", second.UpdatedAt, first.UpdatedAt)
	}

	processed, err := store.IsProcessed(ctx, "x")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Fatal("expected error status to be unprocessed")
	}
}

func TestUpsertProcessedRejectsNonTerminalStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	for _, status := range []state.Status{state.StatusSeen, "done", ""} {
		err := store.UpsertProcessed(context.Background(), "x", status, "")
		if !errors.Is(err, state.ErrInvalidStatus) {
			t.Fatalf("status %q: expected ErrInvalidStatus, got %v", status, err)
		}
	}
	if item, err := store.Get(context.Background(), "x"); err != nil || item != nil {
		t.Fatalf("expected no record after rejected writes, got %#v (%v)", item, err)
	}
}

func TestIsProcessedMissingID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	processed, err := store.IsProcessed(context.Background(), "missing")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Fatal("expected missing id to be unprocessed")
	}
}

func TestPendingReturnsUnsettledWithRef(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mustSeen := func(id string, ref []byte) {
		t.Helper()
		if _, err := store.MarkSeen(ctx, id, ref); err != nil {
			t.Fatalf("MarkSeen(%s) failed: %v", id, err)
		}
	}
	mustSeen("seen-with-ref", []byte(`{"id":"seen-with-ref"}`))
	mustSeen("seen-no-ref", nil)
	mustSeen("failed", []byte(`{"id":"failed"}`))
	mustSeen("done", []byte(`{"id":"done"}`))
	if err := store.UpsertProcessed(ctx, "failed", state.StatusError, ""); err != nil {
		t.Fatalf("UpsertProcessed failed: %v", err)
	}
	if err := store.UpsertProcessed(ctx, "done", state.StatusOK, "h"); err != nil {
		t.Fatalf("UpsertProcessed failed: %v", err)
	}

	pending, err := store.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	got := map[string]bool{}
	for _, item := range pending {
		got[item.ID] = true
	}
	if len(got) != 2 || !got["seen-with-ref"] || !got["failed"] {
		t.Fatalf("unexpected pending set: %v", got)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.MarkSeen(ctx, fmt.Sprintf("id-%d", i), nil); err != nil {
			t.Fatalf("MarkSeen failed: %v", err)
		}
	}
	if err := store.UpsertProcessed(ctx, "id-1", state.StatusOK, "h"); err != nil {
		t.Fatalf("UpsertProcessed failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	ok, err := store.List(ctx, state.StatusOK)
	if err != nil {
		t.Fatalf("List ok failed: %v", err)
	}
	if len(ok) != 1 || ok[0].ID != "id-1" {
		t.Fatalf("unexpected ok items: %#v", ok)
	}
	if _, err := store.List(ctx, "bogus"); !errors.Is(err, state.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if summary.Total != 3 || summary.Seen != 2 || summary.OK != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestCheckpointUpsert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.GetCheckpoint(ctx, "list.page"); err != nil || ok {
		t.Fatalf("expected absent checkpoint, got ok=%v err=%v", ok, err)
	}
	if err := store.SetCheckpoint(ctx, "list.page", "2"); err != nil {
		t.Fatalf("SetCheckpoint failed: %v", err)
	}
	if err := store.SetCheckpoint(ctx, "list.page", "3"); err != nil {
		t.Fatalf("SetCheckpoint overwrite failed: %v", err)
	}
	if got := testsupport.MustCheckpoint(t, store, "list.page"); got != "3" {
		t.Fatalf("unexpected checkpoint value: %q", got)
	}

	all, err := store.Checkpoints(ctx)
	if err != nil {
		t.Fatalf("Checkpoints failed: %v", err)
	}
	if len(all) != 1 || all[0].Value != "3" || all[0].UpdatedAt.IsZero() {
		t.Fatalf("unexpected checkpoints: %#v", all)
	}
}

func TestClosedStoreSurfacesStoreError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := state.OpenConfig(cfg)
	if err != nil {
		t.Fatalf("OpenConfig failed: %v", err)
	}
	store.Close()

	_, err = store.IsProcessed(context.Background(), "a")
	if !errors.Is(err, state.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	var storeErr *state.Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *state.Error, got %T", err)
	}
	if storeErr.Op != "is_processed" || storeErr.ID != "a" {
		t.Fatalf("unexpected error fields: %#v", storeErr)
	}
	if err := store.SetCheckpoint(context.Background(), "k", "v"); !errors.Is(err, state.ErrStore) {
		t.Fatalf("expected ErrStore from SetCheckpoint, got %v", err)
	}
}

func TestConcurrentWritesAreSerialized(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("item-%d", n)
			if _, err := store.MarkSeen(ctx, id, nil); err != nil {
				errs <- err
				return
			}
			if err := store.UpsertProcessed(ctx, id, state.StatusOK, "h"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[state.StatusOK] != workers {
		t.Fatalf("expected %d ok records, got %v", workers, stats)
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]state.Status{
		"seen":  state.StatusSeen,
		" OK ":  state.StatusOK,
		"Error": state.StatusError,
	}
	for input, want := range cases {
		got, err := state.ParseStatus(input)
		if err != nil {
			t.Fatalf("ParseStatus(%q) failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %q want %q", input, got, want)
		}
	}
	if _, err := state.ParseStatus("pending"); !errors.Is(err, state.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
