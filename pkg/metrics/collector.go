package metrics

import (
	"context"
	"time"

	"github.com/cuemby/cradle/pkg/queue"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// Collector periodically snapshots the store and the queue registry into
// Prometheus gauges.
type Collector struct {
	store    storage.Store
	registry *queue.Registry
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(store storage.Store, registry *queue.Registry) *Collector {
	return &Collector{
		store:    store,
		registry: registry,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics every 15s.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectWorkspaceMetrics()
	c.collectQueueMetrics()
}

func (c *Collector) collectWorkspaceMetrics() {
	for _, status := range []types.WorkspaceStatus{
		types.WorkspaceStarting,
		types.WorkspaceRunning,
		types.WorkspaceStopping,
		types.WorkspaceStopped,
		types.WorkspaceFailed,
	} {
		count, err := c.store.Count(context.Background(), storage.CountFilter{Status: status})
		if err != nil {
			continue
		}
		WorkspacesTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (c *Collector) collectQueueMetrics() {
	if c.registry == nil {
		return
	}
	stats := c.registry.Stats()
	QueueDepth.WithLabelValues(string(types.QueuePreWarmed)).Set(float64(stats.PreWarmed))
	QueueDepth.WithLabelValues(string(types.QueueAssigned)).Set(float64(stats.Assigned))
	QueueDepth.WithLabelValues(string(types.QueueRunning)).Set(float64(stats.Running))
	QueueTarget.Set(float64(stats.Target))
}
