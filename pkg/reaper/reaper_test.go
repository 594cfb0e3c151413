package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

type stubForgetter struct{ forgotten []string }

func (s *stubForgetter) Forget(id string) { s.forgotten = append(s.forgotten, id) }

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReconciliationIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	rt := runtime.NewMemoryRuntime("localhost")
	health := &stubForgetter{}

	ctx := context.Background()

	live, err := rt.Create(ctx, runtime.CreateConfig{SkipBucketAttachment: true})
	if err != nil {
		t.Fatalf("failed to create live workspace: %v", err)
	}
	if err := store.Save(ctx, &types.Workspace{ID: live.ID, Status: types.WorkspaceRunning, CreatedAt: live.CreatedAt}); err != nil {
		t.Fatalf("failed to save live workspace: %v", err)
	}

	vanished := &types.Workspace{ID: "ws-vanished", Status: types.WorkspaceRunning, CreatedAt: time.Now()}
	if err := store.Save(ctx, vanished); err != nil {
		t.Fatalf("failed to save vanished workspace: %v", err)
	}

	r := New(store, rt, health, time.Hour)

	r.Tick(ctx)

	if _, err := store.Get(ctx, vanished.ID); types.KindOf(err) != types.KindNotFound {
		t.Fatalf("expected vanished workspace to be deleted after first tick, err=%v", err)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Fatalf("expected live workspace to survive first tick: %v", err)
	}
	if len(health.forgotten) != 1 || health.forgotten[0] != vanished.ID {
		t.Fatalf("expected Forget called once for %s, got %v", vanished.ID, health.forgotten)
	}

	// Second tick over the same state must be a no-op: nothing left to
	// reconcile, nothing new deleted or forgotten.
	r.Tick(ctx)

	if len(health.forgotten) != 1 {
		t.Errorf("expected no additional Forget calls on idempotent second tick, got %v", health.forgotten)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Fatalf("expected live workspace to still be present after second tick: %v", err)
	}
}

func TestReapStoppedRemovesRuntimeAndRecord(t *testing.T) {
	store := newTestStore(t)
	rt := runtime.NewMemoryRuntime("localhost")
	health := &stubForgetter{}
	ctx := context.Background()

	result, err := rt.Create(ctx, runtime.CreateConfig{SkipBucketAttachment: true})
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	stoppedAt := time.Now()
	ws := &types.Workspace{ID: result.ID, Status: types.WorkspaceStopped, StoppedAt: &stoppedAt, CreatedAt: result.CreatedAt}
	if err := store.Save(ctx, ws); err != nil {
		t.Fatalf("failed to save stopped workspace: %v", err)
	}

	r := New(store, rt, health, time.Hour)
	r.Tick(ctx)

	if _, err := store.Get(ctx, ws.ID); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected stopped workspace record removed, err=%v", err)
	}
	if _, err := rt.Get(ctx, ws.ID); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected runtime service removed, err=%v", err)
	}
}

func TestArchiveOldMovesStoppedRecords(t *testing.T) {
	store := newTestStore(t)
	rt := runtime.NewMemoryRuntime("localhost")
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	ws := &types.Workspace{ID: "ws-old", Status: types.WorkspaceStopped, StoppedAt: &old, CreatedAt: old}
	if err := store.Save(ctx, ws); err != nil {
		t.Fatalf("failed to save old workspace: %v", err)
	}

	r := New(store, rt, &stubForgetter{}, time.Hour)
	r.archive(ctx)

	if _, err := store.Get(ctx, ws.ID); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected old stopped record archived out of the live bucket, err=%v", err)
	}
}
