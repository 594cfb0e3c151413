package storage

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/cradle/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestArchiveOldBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	justOld := time.Now().Add(-archiveAfter - time.Minute)
	justNew := time.Now().Add(-archiveAfter + time.Minute)

	old := &types.Workspace{ID: "ws-old", Status: types.WorkspaceStopped, StoppedAt: &justOld, CreatedAt: justOld}
	recent := &types.Workspace{ID: "ws-recent", Status: types.WorkspaceStopped, StoppedAt: &justNew, CreatedAt: justNew}
	running := &types.Workspace{ID: "ws-running", Status: types.WorkspaceRunning, CreatedAt: time.Now()}

	for _, ws := range []*types.Workspace{old, recent, running} {
		if err := store.Save(ctx, ws); err != nil {
			t.Fatalf("failed to save %s: %v", ws.ID, err)
		}
	}

	moved, err := store.ArchiveOld(ctx)
	if err != nil {
		t.Fatalf("ArchiveOld failed: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}

	if _, err := store.Get(ctx, old.ID); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected old stopped record to be archived out of the live bucket, err=%v", err)
	}
	if _, err := store.Get(ctx, recent.ID); err != nil {
		t.Errorf("expected recently-stopped record to remain live: %v", err)
	}
	if _, err := store.Get(ctx, running.ID); err != nil {
		t.Errorf("expected running record to remain live: %v", err)
	}
}

func TestUpdateLifecyclePartialUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ws := &types.Workspace{ID: "ws-1", Status: types.WorkspaceStarting, CreatedAt: time.Now()}
	if err := store.Save(ctx, ws); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	now := time.Now()
	running := types.WorkspaceRunning
	if err := store.UpdateLifecycle(ctx, ws.ID, LifecycleUpdate{Status: &running, StartedAt: &now}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.Get(ctx, ws.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != types.WorkspaceRunning {
		t.Errorf("status = %s, want %s", got.Status, types.WorkspaceRunning)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(now) {
		t.Errorf("started_at not updated correctly")
	}
	if got.Bucket != ws.Bucket {
		t.Errorf("unrelated field Bucket was unexpectedly modified")
	}
}

func TestListFilterByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	running := &types.Workspace{ID: "ws-r", Status: types.WorkspaceRunning, CreatedAt: time.Now()}
	stopped := &types.Workspace{ID: "ws-s", Status: types.WorkspaceStopped, CreatedAt: time.Now()}
	for _, ws := range []*types.Workspace{running, stopped} {
		if err := store.Save(ctx, ws); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	got, err := store.List(ctx, ListFilter{Status: types.WorkspaceRunning})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != running.ID {
		t.Errorf("expected only %s, got %v", running.ID, got)
	}
}
