/*
Package resource implements the Resource Probe: a point-in-time read of
CPU, memory, and disk utilization plus the live workspace count, and the
admission gate new launches pass through.

CPU and memory come from github.com/prometheus/procfs; disk usage from a
syscall.Statfs call against the configured disk path — procfs has no
disk-usage reader, and no pack example pulls in a dedicated disk-usage
library, so this one syscall stays on the standard library.

# Usage

	probe, err := resource.NewProber("/proc", diskPath, runtime.NumCPU(), liveWorkspaces)
	allowed, reason := probe.CanLaunch()

# See Also

  - pkg/queue for the Queue Maintainer's use of CanLaunch before spawning
  - pkg/assignment for the Assignment Handler's use of CanLaunch on miss
*/
package resource
