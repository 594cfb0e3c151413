// Package reaper implements the Cleanup Reaper background loop: it
// archives old stopped records, reconciles the persistent store against
// live infrastructure, and removes runtime objects for records marked
// stopped.
package reaper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// forgetter is the subset of *health.Monitor the Reaper needs to drop
// HealthState for a workspace once it leaves the active statuses.
type forgetter interface {
	Forget(id string)
}

// Reaper is the Cleanup Reaper: a tick loop that keeps the durable store
// aligned with ground truth from the Orchestrator Adapter.
type Reaper struct {
	store   storage.Store
	runtime runtime.Runtime
	health  forgetter

	interval time.Duration
	ticking  atomic.Bool
	stopCh   chan struct{}
	logger   zerolog.Logger
}

// New creates a Cleanup Reaper with the given tick interval.
func New(store storage.Store, rt runtime.Runtime, health forgetter, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Reaper{
		store:    store,
		runtime:  rt,
		health:   health,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("cleanup-reaper"),
	}
}

// Start begins the tick loop.
func (r *Reaper) Start() {
	go r.run()
}

// Stop signals the loop to exit at the next boundary.
func (r *Reaper) Stop() {
	close(r.stopCh)
}

func (r *Reaper) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tickOrSkip(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reaper) tickOrSkip(ctx context.Context) {
	if !r.ticking.CompareAndSwap(false, true) {
		return
	}
	defer r.ticking.Store(false)

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

	r.Tick(ctx)
	metrics.ReaperSweepsTotal.Inc()
}

// Tick runs one reconciliation pass: archive, reconcile-with-runtime, reap
// stopped. Exported so tests (and the reconciliation-idempotence property)
// can drive it directly without waiting on the ticker.
func (r *Reaper) Tick(ctx context.Context) {
	r.archive(ctx)
	r.reconcileWithRuntime(ctx)
	r.reapStopped(ctx)
}

func (r *Reaper) archive(ctx context.Context) {
	moved, err := r.store.ArchiveOld(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to archive old stopped records")
		return
	}
	if moved > 0 {
		metrics.ReaperArchivedTotal.Add(float64(moved))
		r.logger.Info().Int("count", moved).Msg("archived stopped records")
	}
}

// reconcileWithRuntime deletes store records whose backing infrastructure
// service is gone, repairing drift where an operator killed the runtime
// service out from under a surviving durable record.
func (r *Reaper) reconcileWithRuntime(ctx context.Context) {
	for _, status := range []types.WorkspaceStatus{types.WorkspaceStarting, types.WorkspaceRunning, types.WorkspaceStopped} {
		records, err := r.store.List(ctx, storage.ListFilter{Status: status})
		if err != nil {
			r.logger.Error().Err(err).Str("status", string(status)).Msg("failed to list workspaces for reconciliation")
			continue
		}

		for _, ws := range records {
			_, err := r.runtime.Get(ctx, ws.ID)
			if err == nil {
				continue
			}
			if types.KindOf(err) != types.KindNotFound {
				r.logger.Error().Err(err).Str("workspace_id", ws.ID).Msg("failed to check live service during reconciliation")
				continue
			}

			if err := r.store.Delete(ctx, ws.ID); err != nil {
				r.logger.Error().Err(err).Str("workspace_id", ws.ID).Msg("failed to delete vanished workspace record")
				continue
			}
			if r.health != nil {
				r.health.Forget(ws.ID)
			}
			metrics.ReaperDeletedTotal.WithLabelValues("vanished").Inc()
			r.logger.Info().Str("workspace_id", ws.ID).Msg("deleted store record for vanished service")
		}
	}
}

// reapStopped removes the runtime object and store record for every
// workspace marked stopped. A NotFound from Stop is treated identically to
// success: the record is deleted either way.
func (r *Reaper) reapStopped(ctx context.Context) {
	records, err := r.store.List(ctx, storage.ListFilter{Status: types.WorkspaceStopped})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list stopped workspaces")
		return
	}

	for _, ws := range records {
		if err := r.runtime.Stop(ctx, ws.ID); err != nil && types.KindOf(err) != types.KindNotFound {
			r.logger.Error().Err(err).Str("workspace_id", ws.ID).Msg("failed to stop runtime service; will retry next tick")
			continue
		}

		if err := r.store.Delete(ctx, ws.ID); err != nil {
			r.logger.Error().Err(err).Str("workspace_id", ws.ID).Msg("failed to delete reaped workspace record")
			continue
		}
		if r.health != nil {
			r.health.Forget(ws.ID)
		}
		metrics.ReaperDeletedTotal.WithLabelValues("reaped").Inc()
		r.logger.Info().Str("workspace_id", ws.ID).Msg("reaped stopped workspace")
	}
}
