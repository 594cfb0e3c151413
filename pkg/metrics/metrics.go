package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Queue Registry / Maintainer metrics
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cradle_queue_depth",
			Help: "Number of queued entries by state",
		},
		[]string{"state"},
	)

	QueueTarget = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cradle_queue_target",
			Help: "Configured target pool size",
		},
	)

	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cradle_claims_total",
			Help: "Total number of claim_one calls by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)

	ClaimLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cradle_claim_latency_seconds",
			Help:    "Time taken by claim_one in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MaintainerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cradle_maintainer_tick_duration_seconds",
			Help:    "Time taken for a Queue Maintainer tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MaintainerTicksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cradle_maintainer_ticks_skipped_total",
			Help: "Total number of Queue Maintainer ticks skipped because the prior tick was still running",
		},
	)

	SpawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cradle_spawns_total",
			Help: "Total number of pool-replacement spawns by outcome (ready, create_failed, store_failed, timed_out)",
		},
		[]string{"outcome"},
	)

	// Health Monitor metrics
	HealthProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cradle_health_probes_total",
			Help: "Total number of health probes by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	HealthPromotionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cradle_health_promotions_total",
			Help: "Total number of starting to running promotions",
		},
	)

	HealthRecoveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cradle_health_recoveries_total",
			Help: "Total number of consecutive-failure recovery events",
		},
	)

	// Cleanup Reaper metrics
	ReaperSweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cradle_reaper_sweeps_total",
			Help: "Total number of Cleanup Reaper ticks completed",
		},
	)

	ReaperArchivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cradle_reaper_archived_total",
			Help: "Total number of stopped records archived",
		},
	)

	ReaperDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cradle_reaper_deleted_total",
			Help: "Total number of store records deleted by reason (vanished, reaped)",
		},
		[]string{"reason"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cradle_reconciliation_duration_seconds",
			Help:    "Time taken for a Cleanup Reaper tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Assignment Handler metrics
	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cradle_assignments_total",
			Help: "Total number of assignment requests by outcome",
		},
		[]string{"outcome"},
	)

	AssignmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cradle_assignment_duration_seconds",
			Help:    "Time taken to serve an assignment request in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Workspace / API metrics
	WorkspacesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cradle_workspaces_total",
			Help: "Total number of workspaces by status",
		},
		[]string{"status"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cradle_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cradle_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Resource Probe metrics
	ResourceCPUUsagePct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cradle_resource_cpu_usage_pct",
			Help: "Most recent CPU usage percentage snapshot",
		},
	)

	ResourceMemUsagePct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cradle_resource_mem_usage_pct",
			Help: "Most recent memory usage percentage snapshot",
		},
	)

	ResourceDiskUsagePct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cradle_resource_disk_usage_pct",
			Help: "Most recent disk usage percentage snapshot",
		},
	)

	LaunchesRefusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cradle_launches_refused_total",
			Help: "Total number of launches refused by the admission gate",
		},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(QueueTarget)
	prometheus.MustRegister(ClaimsTotal)
	prometheus.MustRegister(ClaimLatency)
	prometheus.MustRegister(MaintainerTickDuration)
	prometheus.MustRegister(MaintainerTicksSkipped)
	prometheus.MustRegister(SpawnsTotal)

	prometheus.MustRegister(HealthProbesTotal)
	prometheus.MustRegister(HealthPromotionsTotal)
	prometheus.MustRegister(HealthRecoveriesTotal)

	prometheus.MustRegister(ReaperSweepsTotal)
	prometheus.MustRegister(ReaperArchivedTotal)
	prometheus.MustRegister(ReaperDeletedTotal)
	prometheus.MustRegister(ReconciliationDuration)

	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(AssignmentDuration)

	prometheus.MustRegister(WorkspacesTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)

	prometheus.MustRegister(ResourceCPUUsagePct)
	prometheus.MustRegister(ResourceMemUsagePct)
	prometheus.MustRegister(ResourceDiskUsagePct)
	prometheus.MustRegister(LaunchesRefusedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
