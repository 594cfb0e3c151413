package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/resource"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

type stubHealthProber struct{ calls int }

func (s *stubHealthProber) ProbeNow(ctx context.Context, id string) { s.calls++ }

func newTestProber(t *testing.T) *resource.Prober {
	t.Helper()
	p, err := resource.NewProber("/proc", "/", 1, nil)
	if err != nil {
		t.Fatalf("failed to create resource prober: %v", err)
	}
	return p
}

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// fakeRuntime is a runtime.Runtime double whose Create returns a
// caller-supplied editor URL, so readiness polling can target a real
// httptest server instead of a synthetic domain.
type fakeRuntime struct {
	mu        sync.Mutex
	editorURL string
	seq       int
	created   []string
}

func (f *fakeRuntime) Create(ctx context.Context, cfg runtime.CreateConfig) (*runtime.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := "ws-fake-" + time.Now().Format("150405.000000000") + string(rune('a'+f.seq))
	f.created = append(f.created, id)
	return &runtime.CreateResult{
		ID:          id,
		ServiceName: types.ServiceName(id),
		URLs:        types.ServiceURLs{Editor: f.editorURL, Desktop: f.editorURL, Web: f.editorURL},
		CreatedAt:   time.Now(),
	}, nil
}

func (f *fakeRuntime) AttachBucket(ctx context.Context, id, bucket, region string, creds *runtime.BucketCredentials) error {
	return nil
}
func (f *fakeRuntime) Stop(ctx context.Context, id string) error { return nil }
func (f *fakeRuntime) List(ctx context.Context) ([]runtime.ServiceRecord, error) {
	return nil, nil
}
func (f *fakeRuntime) Get(ctx context.Context, id string) (*runtime.ServiceRecord, error) {
	return nil, types.Wrap(types.KindNotFound, "not found", nil)
}

func TestMaintainerPoolConvergence(t *testing.T) {
	ready := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ready.Close()

	rt := &fakeRuntime{editorURL: ready.URL}
	store := newTestStore(t)
	registry := NewRegistry(3)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	m := NewMaintainer(registry, rt, store, newTestProber(t), broker, &stubHealthProber{}, MaintainerConfig{
		Interval:     time.Hour,
		SpawnDelay:   time.Millisecond,
		ReadinessCap: 2 * time.Second,
		Domain:       "localhost",
	})

	m.tick(context.Background())

	stats := registry.Stats()
	if stats.Total != 3 {
		t.Errorf("expected pool to converge to target 3, got total=%d", stats.Total)
	}
}

func TestMaintainerSpawnGatedByResources(t *testing.T) {
	rt := &fakeRuntime{}
	store := newTestStore(t)
	registry := NewRegistry(2)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	prober := newTestProber(t)
	prober.SetThresholds(-1, 1000) // mem threshold impossible to satisfy: always refuse

	m := NewMaintainer(registry, rt, store, prober, broker, &stubHealthProber{}, MaintainerConfig{
		Interval: time.Hour,
	})

	m.tick(context.Background())

	if stats := registry.Stats(); stats.Total != 0 {
		t.Errorf("expected no spawns while resource probe refuses launches, got total=%d", stats.Total)
	}
}

func TestMaintainerSpawnTimesOutWithoutReadyBackend(t *testing.T) {
	rt := &fakeRuntime{editorURL: "http://127.0.0.1:1/unreachable"}
	store := newTestStore(t)
	registry := NewRegistry(1)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	m := NewMaintainer(registry, rt, store, newTestProber(t), broker, &stubHealthProber{}, MaintainerConfig{
		Interval:     time.Hour,
		ReadinessCap: 50 * time.Millisecond,
	})

	err := m.spawnOne(context.Background())
	if err == nil {
		t.Fatal("expected spawnOne to report a readiness timeout")
	}
	if types.KindOf(err) != types.KindLaunchFailed {
		t.Errorf("expected KindLaunchFailed, got %v", types.KindOf(err))
	}
	if registry.Has(rt.created[0]) {
		t.Error("expected failed spawn to be removed from the registry")
	}
}

func TestSyncWithRuntimeRemovesVanishedEntries(t *testing.T) {
	rt := &fakeRuntime{}
	store := newTestStore(t)
	registry := NewRegistry(1)
	broker := events.NewBroker()

	m := NewMaintainer(registry, rt, store, newTestProber(t), broker, &stubHealthProber{}, MaintainerConfig{})

	registry.Insert("ws-ghost", "ide-ws-ghost")
	m.syncWithRuntime(context.Background())

	if registry.Has("ws-ghost") {
		t.Error("expected vanished entry to be removed by sync-with-runtime")
	}
}
