package assignment

import (
	"context"
	"sync"
	"testing"

	"github.com/cuemby/cradle/pkg/bucket"
	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/queue"
	"github.com/cuemby/cradle/pkg/resource"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/stats"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

type stubProber struct{ calls int }

func (s *stubProber) ProbeNow(ctx context.Context, id string) { s.calls++ }

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestResourceProber(t *testing.T) *resource.Prober {
	t.Helper()
	p, err := resource.NewProber("/proc", "/", 1, nil)
	if err != nil {
		t.Fatalf("failed to create resource prober: %v", err)
	}
	return p
}

func newHandler(t *testing.T, registry *queue.Registry, rt runtime.Runtime) (*Handler, *storage.BoltStore) {
	t.Helper()
	store := newTestStore(t)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	h := New(registry, rt, store, newTestResourceProber(t), bucket.NewValidator(), stats.NewCollector(store), &stubProber{}, broker, "localhost")
	return h, store
}

func TestAssignPoolHit(t *testing.T) {
	registry := queue.NewRegistry(2)
	rt := runtime.NewMemoryRuntime("localhost")

	seeded, err := rt.Create(context.Background(), runtime.CreateConfig{SkipBucketAttachment: true})
	if err != nil {
		t.Fatalf("failed to seed pool entry: %v", err)
	}
	registry.Insert(seeded.ID, seeded.ServiceName)

	h, _ := newHandler(t, registry, rt)

	result, err := h.Assign(context.Background(), Request{Bucket: "test-bucket-1", SkipRemoteCheck: true})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if result.ID != seeded.ID {
		t.Errorf("expected pool hit to reuse id %s, got %s", seeded.ID, result.ID)
	}

	ws, err := h.store.Get(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("failed to load saved workspace: %v", err)
	}
	if !ws.IsPreWarmed {
		t.Error("expected is_pre_warmed = true for a pool hit")
	}
	if ws.Status != types.WorkspaceStarting {
		t.Errorf("status = %s, want %s", ws.Status, types.WorkspaceStarting)
	}
}

func TestAssignFreshLaunchOnEmptyPool(t *testing.T) {
	registry := queue.NewRegistry(0)
	rt := runtime.NewMemoryRuntime("localhost")
	h, _ := newHandler(t, registry, rt)

	result, err := h.Assign(context.Background(), Request{Bucket: "test-bucket-2", SkipRemoteCheck: true})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	ws, err := h.store.Get(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("failed to load saved workspace: %v", err)
	}
	if ws.IsPreWarmed {
		t.Error("expected is_pre_warmed = false for a fresh launch")
	}
}

func TestAssignAttachFailureFallsBackToFreshLaunch(t *testing.T) {
	registry := queue.NewRegistry(1)
	rt := runtime.NewMemoryRuntime("localhost")
	rt.FailAttach = types.Wrap(types.KindAttachFailed, "simulated attach failure", nil)

	seeded, err := rt.Create(context.Background(), runtime.CreateConfig{SkipBucketAttachment: true})
	if err != nil {
		t.Fatalf("failed to seed pool entry: %v", err)
	}
	registry.Insert(seeded.ID, seeded.ServiceName)

	h, _ := newHandler(t, registry, rt)

	result, err := h.Assign(context.Background(), Request{Bucket: "test-bucket-3", SkipRemoteCheck: true})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if result.ID == seeded.ID {
		t.Error("expected fallback to a fresh launch, not the poisoned pool entry")
	}
	if registry.Has(seeded.ID) {
		t.Error("expected poisoned pool entry to be removed from the registry")
	}
}

func TestAssignConcurrentClaimNoDuplicateIDs(t *testing.T) {
	registry := queue.NewRegistry(1)
	rt := runtime.NewMemoryRuntime("localhost")

	seeded, err := rt.Create(context.Background(), runtime.CreateConfig{SkipBucketAttachment: true})
	if err != nil {
		t.Fatalf("failed to seed pool entry: %v", err)
	}
	registry.Insert(seeded.ID, seeded.ServiceName)

	h, _ := newHandler(t, registry, rt)

	const n = 5
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := h.Assign(context.Background(), Request{Bucket: "test-bucket-4", SkipRemoteCheck: true})
			if err != nil {
				t.Errorf("Assign %d failed: %v", i, err)
				return
			}
			ids[i] = result.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	poolHits := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		seen[id]++
		if id == seeded.ID {
			poolHits++
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("id %s returned to %d concurrent callers, want exactly 1", id, count)
		}
	}
	if poolHits != 1 {
		t.Errorf("expected exactly 1 pool hit among %d concurrent requests, got %d", n, poolHits)
	}
}

func TestAssignInvalidBucketNameRejected(t *testing.T) {
	registry := queue.NewRegistry(0)
	rt := runtime.NewMemoryRuntime("localhost")
	h, _ := newHandler(t, registry, rt)

	_, err := h.Assign(context.Background(), Request{Bucket: "A", SkipRemoteCheck: true})
	if types.KindOf(err) != types.KindInvalidBucket {
		t.Fatalf("expected KindInvalidBucket, got %v", err)
	}
}

func TestAssignResourceExhaustedRefusesLaunch(t *testing.T) {
	registry := queue.NewRegistry(0)
	rt := runtime.NewMemoryRuntime("localhost")

	store := newTestStore(t)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	prober := newTestResourceProber(t)
	prober.SetThresholds(-1, 1000)

	h := New(registry, rt, store, prober, bucket.NewValidator(), stats.NewCollector(store), &stubProber{}, broker, "localhost")

	_, err := h.Assign(context.Background(), Request{Bucket: "test-bucket-5", SkipRemoteCheck: true})
	if types.KindOf(err) != types.KindResourceExhausted {
		t.Fatalf("expected KindResourceExhausted, got %v", err)
	}
}
