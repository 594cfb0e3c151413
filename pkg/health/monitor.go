package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
)

// MaxConsecutiveFailures is the default failure threshold before a
// workspace is marked failed and recovery is handed to the runtime's own
// restart policy.
const MaxConsecutiveFailures = 3

// probeTimeout bounds every individual HTTP health probe.
const probeTimeout = 3 * time.Second

// Monitor is the Health Monitor: a tick loop that probes every starting or
// running workspace's three service endpoints, promotes starting→running
// on first all-success, and marks failed after N consecutive failures.
type Monitor struct {
	store    storage.Store
	broker   *events.Broker
	interval time.Duration
	maxFails int
	client   *http.Client

	mu     sync.Mutex
	states map[string]*types.HealthState
	edAvailable map[string]bool

	stopCh chan struct{}
	logger zerolog.Logger
}

// NewMonitor creates a Health Monitor with the given tick interval and
// consecutive-failure threshold.
func NewMonitor(store storage.Store, broker *events.Broker, interval time.Duration, maxFails int) *Monitor {
	if maxFails <= 0 {
		maxFails = MaxConsecutiveFailures
	}
	return &Monitor{
		store:    store,
		broker:   broker,
		interval: interval,
		maxFails: maxFails,
		client: &http.Client{
			Timeout: probeTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		states:      make(map[string]*types.HealthState),
		edAvailable: make(map[string]bool),
		stopCh:      make(chan struct{}),
		logger:      log.WithComponent("health-monitor"),
	}
}

// Start begins the tick loop.
func (m *Monitor) Start() {
	go m.run()
}

// Stop signals the loop to exit at the next boundary.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	active, err := m.store.List(ctx, storage.ListFilter{})
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list workspaces for health tick")
		return
	}

	for _, ws := range active {
		if ws.Status != types.WorkspaceStarting && ws.Status != types.WorkspaceRunning {
			continue
		}
		m.checkOne(ctx, ws)
	}
}

// checkOne probes the three service URLs concurrently and updates state.
func (m *Monitor) checkOne(ctx context.Context, ws *types.Workspace) {
	results := m.probeAll(ctx, ws)

	allSucceeded := results[ws.URLs.Editor] && results[ws.URLs.Desktop] && results[ws.URLs.Web]
	editorSucceeded := results[ws.URLs.Editor]

	m.mu.Lock()
	state, ok := m.states[ws.ID]
	if !ok {
		state = &types.HealthState{ID: ws.ID}
		m.states[ws.ID] = state
	}
	state.LastCheck = time.Now()

	emitEditorAvailable := editorSucceeded && !m.edAvailable[ws.ID]
	if emitEditorAvailable {
		m.edAvailable[ws.ID] = true
	}

	if allSucceeded {
		promoted := ws.Status == types.WorkspaceStarting
		state.ConsecutiveFailures = 0
		state.RecoveryAttempted = false
		m.mu.Unlock()

		if emitEditorAvailable {
			m.broker.Publish(&events.Event{WorkspaceID: ws.ID, Type: events.EventCodeEditorAvailable})
		}
		if promoted {
			m.promote(ctx, ws)
		}
		return
	}

	state.ConsecutiveFailures++
	shouldFail := state.ConsecutiveFailures >= m.maxFails && !state.RecoveryAttempted
	if shouldFail {
		state.RecoveryAttempted = true
	}
	m.mu.Unlock()

	if emitEditorAvailable {
		m.broker.Publish(&events.Event{WorkspaceID: ws.ID, Type: events.EventCodeEditorAvailable})
	}
	if shouldFail {
		m.markFailed(ctx, ws)
	}
}

func (m *Monitor) probeAll(ctx context.Context, ws *types.Workspace) map[string]bool {
	urls := []string{ws.URLs.Editor, ws.URLs.Desktop, ws.URLs.Web}
	results := make(map[string]bool, len(urls))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			ok := m.probe(ctx, url)
			mu.Lock()
			results[url] = ok
			mu.Unlock()
		}(url)
	}
	wg.Wait()

	for _, url := range urls {
		outcome := "success"
		if !results[url] {
			outcome = "failure"
		}
		metrics.HealthProbesTotal.WithLabelValues(url, outcome).Inc()
	}
	return results
}

// probe succeeds iff the response status is below 500; network errors,
// timeouts, and 5xx are failures. 404 is success: the proxy routes but the
// endpoint has no content, which is acceptable.
func (m *Monitor) probe(ctx context.Context, url string) bool {
	checker := &HTTPChecker{
		URL:               url,
		Method:            http.MethodGet,
		ExpectedStatusMin: 100,
		ExpectedStatusMax: 499,
		Client:            m.client,
	}
	return checker.Check(ctx).Healthy
}

func (m *Monitor) promote(ctx context.Context, ws *types.Workspace) {
	now := time.Now()
	running := types.WorkspaceRunning
	if err := m.store.UpdateLifecycle(ctx, ws.ID, storage.LifecycleUpdate{Status: &running, StartedAt: &now}); err != nil {
		m.logger.Error().Err(err).Str("workspace_id", ws.ID).Msg("failed to promote workspace to running")
		return
	}
	metrics.HealthPromotionsTotal.Inc()
	m.broker.Publish(&events.Event{WorkspaceID: ws.ID, Type: events.EventWorkspaceRunning})
	m.logger.Info().Str("workspace_id", ws.ID).Msg("workspace promoted to running")
}

func (m *Monitor) markFailed(ctx context.Context, ws *types.Workspace) {
	failed := types.WorkspaceFailed
	if err := m.store.UpdateLifecycle(ctx, ws.ID, storage.LifecycleUpdate{Status: &failed}); err != nil {
		m.logger.Error().Err(err).Str("workspace_id", ws.ID).Msg("failed to mark workspace failed")
		return
	}
	metrics.HealthRecoveriesTotal.Inc()
	m.broker.Publish(&events.Event{WorkspaceID: ws.ID, Type: events.EventHealthRecoveryAttempted})
	m.logger.Warn().Str("workspace_id", ws.ID).Msg("workspace marked failed after consecutive health failures")
}

// ProbeNow triggers an eager, synchronous check for id, for the Assignment
// Handler to call right after assignment.
func (m *Monitor) ProbeNow(ctx context.Context, id string) {
	ws, err := m.store.Get(ctx, id)
	if err != nil {
		return
	}
	m.checkOne(ctx, ws)
}

// Forget drops HealthState for id when a workspace leaves the active
// statuses (stopped or failed terminally).
func (m *Monitor) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	delete(m.edAvailable, id)
}

// Snapshot returns a copy of the current HealthState for id, for the API
// layer's "health" summary field. ok is false if no probe has run yet.
func (m *Monitor) Snapshot(id string) (state types.HealthState, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, found := m.states[id]
	if !found {
		return types.HealthState{}, false
	}
	return *s, true
}
