package stats

import (
	"context"
	"testing"

	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCodeEditorAvailableAtMostOnce(t *testing.T) {
	store := newTestStore(t)
	c := NewCollector(store)
	ctx := context.Background()

	c.OnRequestReceived(ctx, "ws-1", "my-bucket", "user-1")

	c.OnCodeEditorAvailable(ctx, "ws-1")
	row, err := store.GetStatsRow(ctx, "ws-1")
	if err != nil {
		t.Fatalf("failed to get stats row: %v", err)
	}
	if row.CodeEditorAvailableAt == nil {
		t.Fatal("expected code_editor_available_at to be set")
	}
	firstAt := *row.CodeEditorAvailableAt
	firstStartup := *row.StartupMS

	c.OnCodeEditorAvailable(ctx, "ws-1")
	row, err = store.GetStatsRow(ctx, "ws-1")
	if err != nil {
		t.Fatalf("failed to get stats row: %v", err)
	}
	if !row.CodeEditorAvailableAt.Equal(firstAt) {
		t.Errorf("code_editor_available_at changed on second call: first=%v, second=%v", firstAt, *row.CodeEditorAvailableAt)
	}
	if *row.StartupMS != firstStartup {
		t.Errorf("startup_ms changed on second call: first=%d, second=%d", firstStartup, *row.StartupMS)
	}
}

func TestOnStoppedMeasuresFromCodeEditorAvailable(t *testing.T) {
	store := newTestStore(t)
	c := NewCollector(store)
	ctx := context.Background()

	c.OnRequestReceived(ctx, "ws-2", "my-bucket", "user-1")
	c.OnCodeEditorAvailable(ctx, "ws-2")
	c.OnStopped(ctx, "ws-2", types.ShutdownInactivity)

	row, err := store.GetStatsRow(ctx, "ws-2")
	if err != nil {
		t.Fatalf("failed to get stats row: %v", err)
	}
	if row.StoppedAt == nil {
		t.Fatal("expected stopped_at to be set")
	}
	if row.ShutdownReason != types.ShutdownInactivity {
		t.Errorf("shutdown_reason = %s, want %s", row.ShutdownReason, types.ShutdownInactivity)
	}
	if row.ActiveMS == nil {
		t.Fatal("expected active_ms to be set")
	}
}

func TestDisabledAfterBackendFailureIsGlobal(t *testing.T) {
	store := newTestStore(t)
	c := NewCollector(store)
	store.Close() // force every subsequent call to fail

	c.OnRequestReceived(context.Background(), "ws-3", "b", "u")
	if c.Enabled() {
		t.Fatal("expected collector to disable itself after a backend failure")
	}

	// Further calls must be silent no-ops, not panics, once disabled.
	c.OnCodeEditorAvailable(context.Background(), "ws-3")
	c.OnStopped(context.Background(), "ws-3", types.ShutdownManual)
}
