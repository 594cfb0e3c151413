// Package stats implements the Lifecycle Stats collector: a best-effort
// per-workspace timeline of request-received, code-editor-available, and
// stopped events, used to compute startup-time and active-duration.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// Collector records the three-point lifecycle timeline for a workspace.
// All writes are best-effort: a failing store never affects control flow
// elsewhere in the control plane. If the backend is ever unreachable,
// stats are disabled globally for the rest of the process and every hook
// becomes a silent no-op.
type Collector struct {
	store  storage.Store
	logger zerolog.Logger

	mu       sync.Mutex
	disabled bool
}

// NewCollector creates a Lifecycle Stats collector backed by store.
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		logger: log.WithComponent("lifecycle-stats"),
	}
}

// Enabled reports whether the stats backend is still considered reachable.
func (c *Collector) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled
}

func (c *Collector) disable(err error) {
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
	c.logger.Error().Err(err).Msg("lifecycle stats backend unavailable; disabling stats collection")
}

// OnRequestReceived inserts a new row for id with request_received_at set
// to the time of this call. The Assignment Handler calls it after the
// claim or launch has produced id, so the recorded time is not the time
// the request arrived.
func (c *Collector) OnRequestReceived(ctx context.Context, id, bucket, userID string) {
	if !c.Enabled() {
		return
	}

	row := &types.LifecycleStatsRow{
		ContainerID:       id,
		UserID:            userID,
		Bucket:            bucket,
		RequestReceivedAt: time.Now(),
	}
	if err := c.store.SaveStatsRow(ctx, row); err != nil {
		c.disable(err)
	}
}

// OnCodeEditorAvailable sets code_editor_available_at and startup_ms the
// first time it is called for id; later calls for the same id are no-ops,
// which is what makes it safe to call on every successful probe.
func (c *Collector) OnCodeEditorAvailable(ctx context.Context, id string) {
	if !c.Enabled() {
		return
	}

	err := c.store.UpdateStatsRow(ctx, id, func(row *types.LifecycleStatsRow) {
		if row.CodeEditorAvailableAt != nil {
			return
		}
		now := time.Now()
		row.CodeEditorAvailableAt = &now
		ms := now.Sub(row.RequestReceivedAt).Milliseconds()
		row.StartupMS = &ms
	})
	if err != nil && types.KindOf(err) != types.KindNotFound {
		c.disable(err)
	}
}

// OnStopped sets stopped_at, active_ms, and shutdown_reason. active_ms is
// measured from code_editor_available_at when present, falling back to
// request_received_at for workspaces that never became healthy.
func (c *Collector) OnStopped(ctx context.Context, id string, reason types.ShutdownReason) {
	if !c.Enabled() {
		return
	}

	err := c.store.UpdateStatsRow(ctx, id, func(row *types.LifecycleStatsRow) {
		now := time.Now()
		row.StoppedAt = &now
		row.ShutdownReason = reason

		from := row.RequestReceivedAt
		if row.CodeEditorAvailableAt != nil {
			from = *row.CodeEditorAvailableAt
		}
		ms := now.Sub(from).Milliseconds()
		row.ActiveMS = &ms
	})
	if err != nil && types.KindOf(err) != types.KindNotFound {
		c.disable(err)
	}
}
