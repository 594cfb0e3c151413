/*
Package metrics provides Prometheus metrics collection and exposition for the
workspace control plane.

Metrics are registered at package init and exposed via the standard
Prometheus text exposition format through Handler(), mounted at /metrics by
pkg/api.

# Metrics Catalog

Queue:
  - cradle_queue_depth{state}: pool size by state (pre-warmed, assigned, running)
  - cradle_queue_target: configured target pool size
  - cradle_claims_total{outcome}: claim_one outcomes (hit, miss)
  - cradle_claim_latency_seconds: time spent inside claim_one
  - cradle_maintainer_tick_duration_seconds: Queue Maintainer tick duration
  - cradle_maintainer_ticks_skipped_total: ticks skipped due to overlap
  - cradle_spawns_total{outcome}: pool-replacement spawn outcomes (ready,
    create_failed, store_failed, timed_out)

Health:
  - cradle_health_probes_total{endpoint,outcome}: per-endpoint probe outcomes
  - cradle_health_promotions_total: starting→running promotions
  - cradle_health_recoveries_total: consecutive-failure recovery events

Reaper:
  - cradle_reaper_sweeps_total: ticks completed
  - cradle_reaper_archived_total: records archived
  - cradle_reaper_deleted_total{reason}: records deleted (vanished, reaped)
  - cradle_reconciliation_duration_seconds: tick duration

Assignment / API:
  - cradle_assignments_total{outcome}
  - cradle_assignment_duration_seconds
  - cradle_workspaces_total{status}
  - cradle_api_requests_total{method,status}
  - cradle_api_request_duration_seconds{method}

Resource Probe:
  - cradle_resource_cpu_usage_pct, cradle_resource_mem_usage_pct,
    cradle_resource_disk_usage_pct
  - cradle_launches_refused_total

cradle_claims_total, cradle_claim_latency_seconds, the three
cradle_resource_*_usage_pct gauges and cradle_launches_refused_total are
registered and exposed, but no code in the module updates them.

# Usage

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.AssignmentDuration)

	metrics.ClaimsTotal.WithLabelValues("hit").Inc()

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, so availability is guaranteed before main() runs.

Timer Pattern:
  - Create a Timer at operation start, call ObserveDuration at the end.

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
