package queue

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/resource"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// servicePrefix is the Orchestrator-Adapter service-name prefix for
// workspace containers; anything else (proxy, control-plane itself) is
// filtered out of the sync-with-runtime pass.
const servicePrefix = "ide-"

// DefaultSpawnDelay is the fixed inter-spawn delay used to avoid a runtime
// stampede when topping up the pool.
const DefaultSpawnDelay = 2 * time.Second

// DefaultReadinessCap bounds how long a single pool spawn waits for the
// editor URL to become reachable through the reverse proxy.
const DefaultReadinessCap = 120 * time.Second

// readinessPollInterval is how often the readiness wait polls the editor URL.
const readinessPollInterval = 2 * time.Second

// MaintainerConfig carries the options a Maintainer is constructed with.
type MaintainerConfig struct {
	Interval      time.Duration
	SpawnDelay    time.Duration
	ReadinessCap  time.Duration
	Domain        string
	VNCPassword   string
}

// Maintainer is the Queue Maintainer background loop: it reconciles the
// Registry with live infrastructure and tops up the pool to its configured
// target, one replacement at a time, gated on the Resource Probe.
type Maintainer struct {
	registry *Registry
	runtime  runtime.Runtime
	store    storage.Store
	prober   *resource.Prober
	broker   *events.Broker
	health   healthProber

	cfg MaintainerConfig

	ticking atomic.Bool
	stopCh  chan struct{}
	client  *http.Client
	logger  zerolog.Logger
}

// healthProber is the subset of *health.Monitor the Maintainer needs, kept
// as a narrow interface so pkg/queue never imports pkg/health directly.
type healthProber interface {
	ProbeNow(ctx context.Context, id string)
}

// NewMaintainer creates a Queue Maintainer.
func NewMaintainer(registry *Registry, rt runtime.Runtime, store storage.Store, prober *resource.Prober, broker *events.Broker, health healthProber, cfg MaintainerConfig) *Maintainer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.SpawnDelay <= 0 {
		cfg.SpawnDelay = DefaultSpawnDelay
	}
	if cfg.ReadinessCap <= 0 {
		cfg.ReadinessCap = DefaultReadinessCap
	}

	return &Maintainer{
		registry: registry,
		runtime:  rt,
		store:    store,
		prober:   prober,
		broker:   broker,
		health:   health,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   log.WithComponent("queue-maintainer"),
	}
}

// Start begins the tick loop.
func (m *Maintainer) Start() {
	go m.run()
}

// Stop signals the loop to exit at the next boundary.
func (m *Maintainer) Stop() {
	close(m.stopCh)
}

func (m *Maintainer) run() {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tickOrSkip(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// tickOrSkip runs one tick unless the previous tick is still in flight, in
// which case it is skipped rather than queued.
func (m *Maintainer) tickOrSkip(ctx context.Context) {
	if !m.ticking.CompareAndSwap(false, true) {
		metrics.MaintainerTicksSkipped.Inc()
		return
	}
	defer m.ticking.Store(false)

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MaintainerTickDuration)

	m.tick(ctx)
}

func (m *Maintainer) tick(ctx context.Context) {
	m.syncWithRuntime(ctx)

	deficit := m.registry.Deficit()
	if deficit == 0 {
		return
	}

	allowed, reason := m.prober.CanLaunch()
	if !allowed {
		m.logger.Warn().Str("reason", reason).Msg("pool top-up gated by resource probe")
		return
	}

	for i := 0; i < deficit; i++ {
		if err := m.spawnOne(ctx); err != nil {
			m.logger.Error().Err(err).Msg("pool spawn failed")
			m.broker.Publish(&events.Event{Type: events.EventSpawnFailed, Message: err.Error()})
		}
		if i < deficit-1 {
			select {
			case <-time.After(m.cfg.SpawnDelay):
			case <-m.stopCh:
				return
			}
		}
	}
}

// syncWithRuntime reconciles the Registry against live infrastructure: ids
// no longer present in the live list are removed (the deleting variant,
// per spec.md §9's open-question resolution), and live pre-warmed services
// not yet tracked are discovered and inserted.
func (m *Maintainer) syncWithRuntime(ctx context.Context) {
	live, err := m.runtime.List(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list live services for queue sync")
		return
	}

	liveIDs := make(map[string]runtime.ServiceRecord, len(live))
	for _, svc := range live {
		if !strings.HasPrefix(svc.ServiceName, servicePrefix) {
			continue
		}
		liveIDs[svc.ID] = svc
	}

	for _, id := range m.registry.IDs() {
		if _, ok := liveIDs[id]; !ok {
			m.registry.Remove(id)
		}
	}

	for id, svc := range liveIDs {
		if svc.Bucket != "" {
			continue
		}
		if m.registry.Has(id) {
			continue
		}
		m.registry.Insert(id, svc.ServiceName)
	}
}

// spawnOne launches a single pre-warmed replacement, waits for readiness
// through the reverse proxy, and promotes it into the Registry on success.
func (m *Maintainer) spawnOne(ctx context.Context) error {
	result, err := m.runtime.Create(ctx, runtime.CreateConfig{
		SkipBucketAttachment: true,
		Domain:               m.cfg.Domain,
		VNCPassword:          m.cfg.VNCPassword,
	})
	if err != nil {
		metrics.SpawnsTotal.WithLabelValues("create_failed").Inc()
		return types.Wrap(types.KindLaunchFailed, "queue maintainer failed to create pool replacement", err)
	}

	ws := &types.Workspace{
		ID:          result.ID,
		ServiceName: result.ServiceName,
		Status:      types.WorkspaceStarting,
		URLs:        result.URLs,
		CreatedAt:   result.CreatedAt,
		IsPreWarmed: true,
	}
	if err := m.store.Save(ctx, ws); err != nil {
		metrics.SpawnsTotal.WithLabelValues("store_failed").Inc()
		return types.Wrap(types.KindStoreUnavailable, "failed to persist pool replacement", err)
	}

	if !m.awaitReady(ctx, result.URLs.Editor) {
		failed := types.WorkspaceFailed
		_ = m.store.UpdateLifecycle(ctx, result.ID, storage.LifecycleUpdate{Status: &failed})
		m.registry.Remove(result.ID)
		metrics.SpawnsTotal.WithLabelValues("timed_out").Inc()
		return types.Wrap(types.KindLaunchFailed, "pool replacement did not become ready within the readiness cap", nil)
	}

	m.registry.Insert(result.ID, result.ServiceName)
	running := types.WorkspaceRunning
	if err := m.store.UpdateLifecycle(ctx, result.ID, storage.LifecycleUpdate{Status: &running}); err != nil {
		m.logger.Error().Err(err).Str("workspace_id", result.ID).Msg("failed to mark pool replacement running")
	}
	metrics.SpawnsTotal.WithLabelValues("ready").Inc()

	if m.health != nil {
		m.health.ProbeNow(ctx, result.ID)
	}
	return nil
}

// awaitReady polls editorURL until it reports HTTP 200/302/401 (ready), a
// 404 (proxy routing not active yet, keep polling), or the cap elapses.
// 5xx, network errors, and timeouts all count as "not ready".
func (m *Maintainer) awaitReady(ctx context.Context, editorURL string) bool {
	deadline := time.Now().Add(m.cfg.ReadinessCap)

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, editorURL, nil)
		if err == nil {
			resp, err := m.client.Do(req)
			if err == nil {
				resp.Body.Close()
				switch resp.StatusCode {
				case http.StatusOK, http.StatusFound, http.StatusUnauthorized:
					return true
				case http.StatusNotFound:
					// proxy routing not active yet; keep polling.
				}
			}
		}

		select {
		case <-time.After(readinessPollInterval):
		case <-m.stopCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return false
}

// HandleContainerFailure handles a container that failed outside the spawn
// path. Its only caller is ControlPlane.OnContainerFailure; the Health
// Monitor does not call it when it marks a workspace failed. A
// pre-warmed entry that was never assigned is worth replacing immediately;
// an assigned one belongs to an in-flight request and is left alone.
func (m *Maintainer) HandleContainerFailure(ctx context.Context, id string) {
	entry := m.registry.Get(id)
	m.registry.Remove(id)
	if entry != nil && entry.State == types.QueuePreWarmed {
		if err := m.spawnOne(ctx); err != nil {
			m.logger.Error().Err(err).Msg("failed to spawn replacement after container failure")
		}
	}
}
