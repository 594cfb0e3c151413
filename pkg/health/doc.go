/*
Package health implements the Health Monitor: a tick loop that probes every
starting or running workspace's editor, desktop, and web endpoints over
HTTP, promotes starting→running on first all-three success, and marks a
workspace failed after a configured run of consecutive failures.

HTTPChecker is the single-endpoint probe primitive (trimmed from the
teacher's generic HTTP health checker down to the fields Monitor actually
drives); Monitor builds three of them per workspace, per tick, and tracks
per-id HealthState.

# Usage

	monitor := health.NewMonitor(store, broker, 5*time.Second, health.MaxConsecutiveFailures)
	monitor.Start()
	defer monitor.Stop()

	monitor.ProbeNow(ctx, id) // eager check right after assignment

# Design Patterns

Hysteresis: a single failed probe never flips status; only
MaxConsecutiveFailures in a row trigger the failed transition, and any
success resets the counter to zero.

# See Also

  - pkg/assignment for ProbeNow's caller
  - pkg/events for the lifecycle events Monitor publishes
*/
package health
