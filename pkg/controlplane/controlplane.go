// Package controlplane wires together the persistent store, the runtime
// adapter, and the four background loops (queue maintainer, health monitor,
// cleanup reaper, metrics collector) behind the Assignment Handler, mirroring
// how the teacher's manager package builds its dependency graph once at
// startup and hands components their collaborators through constructors.
package controlplane

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/assignment"
	"github.com/cuemby/cradle/pkg/bucket"
	"github.com/cuemby/cradle/pkg/config"
	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/health"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/queue"
	"github.com/cuemby/cradle/pkg/reaper"
	"github.com/cuemby/cradle/pkg/resource"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/stats"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// ControlPlane owns every long-lived component and the background loops
// that drive the workspace lifecycle end to end.
type ControlPlane struct {
	Store     storage.Store
	Runtime   runtime.Runtime
	Registry  *queue.Registry
	Prober    *resource.Prober
	Validator *bucket.Validator
	Broker    *events.Broker
	Stats     *stats.Collector
	Health    *health.Monitor
	Maintainer *queue.Maintainer
	Reaper    *reaper.Reaper
	Metrics   *metrics.Collector
	Assign    *assignment.Handler

	statsSub events.Subscriber
	cfg      config.Config
	logger   zerolog.Logger
}

// New builds a ControlPlane from cfg, opening the durable store and the
// runtime adapter. Pass a runtime.MemoryRuntime in tests to avoid a real
// containerd dependency.
func New(cfg config.Config, rt runtime.Runtime) (*ControlPlane, error) {
	logger := log.WithComponent("control-plane")

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, types.Wrap(types.KindStoreUnavailable, "failed to open durable store", err)
	}

	registry := queue.NewRegistry(cfg.TargetPoolSize)
	broker := events.NewBroker()
	validator := bucket.NewValidator()
	statsC := stats.NewCollector(store)

	liveWorkspaces := func() int {
		n, err := store.Count(context.Background(), storage.CountFilter{})
		if err != nil {
			return 0
		}
		return n
	}

	prober, err := resource.NewProber(cfg.ProcPath, cfg.DiskPath, int(cfg.CPUCoresLimit), liveWorkspaces)
	if err != nil {
		store.Close()
		return nil, types.Wrap(types.KindLaunchFailed, "failed to initialize resource probe", err)
	}
	prober.SetThresholds(cfg.MemThresholdPct, cfg.CPUThresholdPct)

	healthMonitor := health.NewMonitor(store, broker, cfg.LoopPeriods.Health, cfg.MaxConsecutiveFails)

	maintainer := queue.NewMaintainer(registry, rt, store, prober, broker, healthMonitor, queue.MaintainerConfig{
		Interval:     cfg.LoopPeriods.Queue,
		ReadinessCap: cfg.ReadinessWaitCap,
		Domain:       cfg.Domain,
	})

	cleanupReaper := reaper.New(store, rt, healthMonitor, cfg.LoopPeriods.Cleanup)

	metricsCollector := metrics.NewCollector(store, registry)

	handler := assignment.New(registry, rt, store, prober, validator, statsC, healthMonitor, broker, cfg.Domain)

	return &ControlPlane{
		Store:      store,
		Runtime:    rt,
		Registry:   registry,
		Prober:     prober,
		Validator:  validator,
		Broker:     broker,
		Stats:      statsC,
		Health:     healthMonitor,
		Maintainer: maintainer,
		Reaper:     cleanupReaper,
		Metrics:    metricsCollector,
		Assign:     handler,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Start begins every background loop. Must be called once before the API
// surface accepts requests.
func (cp *ControlPlane) Start() {
	cp.Broker.Start()
	cp.Health.Start()
	cp.Maintainer.Start()
	cp.Reaper.Start()
	cp.Metrics.Start()

	cp.statsSub = cp.Broker.Subscribe()
	go cp.runStatsBridge(cp.statsSub)

	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("runtime", true, "")
	metrics.RegisterComponent("api", true, "")

	cp.logger.Info().
		Int("target_pool_size", cp.cfg.TargetPoolSize).
		Str("domain", cp.cfg.Domain).
		Msg("control plane started")
}

// runStatsBridge is the sole subscriber that turns the health monitor's
// code_editor_available event into the Lifecycle Stats idempotency write;
// it never blocks the broker (its subscriber channel is buffered, and the
// broker skips a subscriber whose buffer is full) and exits once the broker
// closes the channel on Unsubscribe.
func (cp *ControlPlane) runStatsBridge(sub events.Subscriber) {
	for event := range sub {
		if event.Type == events.EventCodeEditorAvailable {
			cp.Stats.OnCodeEditorAvailable(context.Background(), event.WorkspaceID)
		}
	}
}

// Stop signals every background loop to exit and closes the durable store.
// It does not wait for in-flight loop work to finish: the loops stop at
// their next tick boundary, and ctx only produces a warning if it is
// already done when Stop reaches its wait.
func (cp *ControlPlane) Stop(ctx context.Context) error {
	cp.Maintainer.Stop()
	cp.Health.Stop()
	cp.Reaper.Stop()
	cp.Metrics.Stop()
	if cp.statsSub != nil {
		cp.Broker.Unsubscribe(cp.statsSub)
	}
	cp.Broker.Stop()

	done := make(chan struct{})
	go func() {
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		cp.logger.Warn().Msg("shutdown deadline exceeded waiting for background loops")
	}

	if err := cp.Store.Close(); err != nil {
		return err
	}
	if closer, ok := cp.Runtime.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// OnContainerFailure is the hook the API layer or an external watcher calls
// when it observes a container died outside the normal health-probe path;
// it simply forwards to the queue maintainer's own recovery logic.
func (cp *ControlPlane) OnContainerFailure(ctx context.Context, id string) {
	cp.Maintainer.HandleContainerFailure(ctx, id)
}

// shutdownGracePeriod is the default graceful-shutdown deadline that the
// serve command applies to draining its http.Server and to Stop.
const shutdownGracePeriod = 15 * time.Second

// DefaultShutdownGrace returns the default graceful-shutdown deadline.
func DefaultShutdownGrace() time.Duration {
	return shutdownGracePeriod
}
