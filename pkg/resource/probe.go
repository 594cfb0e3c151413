package resource

import (
	"sync"
	"syscall"

	"github.com/prometheus/procfs"
	"github.com/cuemby/cradle/pkg/log"
)

// Snapshot is a point-in-time resource reading.
type Snapshot struct {
	CPUUsagePct   float64
	CPUCores      int
	MemUsed       uint64
	MemTotal      uint64
	MemUsagePct   float64
	DiskUsed      uint64
	DiskTotal     uint64
	DiskUsagePct  float64
	LiveWorkspaces int
}

// Prober reads CPU/memory/disk utilization from procfs and the configured
// disk path, and gates new workspace launches on the results.
type Prober struct {
	mu sync.Mutex

	fs       procfs.FS
	diskPath string
	cores    int

	memThresholdPct float64
	cpuThresholdPct float64

	prevTotal float64
	prevIdle  float64

	liveWorkspaces func() int
}

// NewProber creates a Prober rooted at procPath (normally "/proc") and
// reporting disk usage for diskPath. liveWorkspaces, when non-nil, is
// consulted for the live_workspaces count in Snapshot.
func NewProber(procPath, diskPath string, cores int, liveWorkspaces func() int) (*Prober, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, err
	}

	return &Prober{
		fs:              fs,
		diskPath:        diskPath,
		cores:           cores,
		memThresholdPct: 90,
		cpuThresholdPct: 90,
		liveWorkspaces:  liveWorkspaces,
	}, nil
}

// SetThresholds updates the mem/cpu admission thresholds at runtime.
func (p *Prober) SetThresholds(memPct, cpuPct float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memThresholdPct = memPct
	p.cpuThresholdPct = cpuPct
}

// Snapshot reads current CPU/memory/disk utilization.
func (p *Prober) Snapshot() (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{CPUCores: p.cores}

	stat, err := p.fs.Stat()
	if err == nil {
		idle := stat.CPUTotal.Idle + stat.CPUTotal.Iowait
		total := stat.CPUTotal.User + stat.CPUTotal.Nice + stat.CPUTotal.System +
			idle + stat.CPUTotal.IRQ + stat.CPUTotal.SoftIRQ + stat.CPUTotal.Steal

		if p.prevTotal > 0 {
			totalDelta := total - p.prevTotal
			idleDelta := idle - p.prevIdle
			if totalDelta > 0 {
				s.CPUUsagePct = (1 - idleDelta/totalDelta) * 100
			}
		}
		p.prevTotal = total
		p.prevIdle = idle
	}

	mem, err := p.fs.Meminfo()
	if err == nil {
		if mem.MemTotal != nil {
			s.MemTotal = *mem.MemTotal * 1024
		}
		if mem.MemAvailable != nil {
			s.MemUsed = s.MemTotal - (*mem.MemAvailable * 1024)
		}
		if s.MemTotal > 0 {
			s.MemUsagePct = float64(s.MemUsed) / float64(s.MemTotal) * 100
		}
	}

	if p.diskPath != "" {
		var statfs syscall.Statfs_t
		if err := syscall.Statfs(p.diskPath, &statfs); err == nil {
			s.DiskTotal = statfs.Blocks * uint64(statfs.Bsize)
			free := statfs.Bfree * uint64(statfs.Bsize)
			s.DiskUsed = s.DiskTotal - free
			if s.DiskTotal > 0 {
				s.DiskUsagePct = float64(s.DiskUsed) / float64(s.DiskTotal) * 100
			}
		}
	}

	if p.liveWorkspaces != nil {
		s.LiveWorkspaces = p.liveWorkspaces()
	}

	return s, nil
}

// CanLaunch reports whether a new workspace launch is admissible: refused
// iff mem_pct is at or above the memory threshold. CPU over threshold is
// logged here as a warning but never blocks admission.
func (p *Prober) CanLaunch() (bool, string) {
	snap, err := p.Snapshot()
	if err != nil {
		// Fail open: an unreadable resource snapshot should not wedge
		// every launch; the caller still sees elevated latency on repeat
		// failures via its own metrics.
		return true, ""
	}

	p.mu.Lock()
	memThreshold := p.memThresholdPct
	cpuThreshold := p.cpuThresholdPct
	p.mu.Unlock()

	if snap.MemUsagePct >= memThreshold {
		return false, "memory usage at or above threshold"
	}
	if snap.CPUUsagePct >= cpuThreshold {
		log.WithComponent("resource-probe").Warn().
			Float64("cpu_usage_pct", snap.CPUUsagePct).
			Float64("cpu_threshold_pct", cpuThreshold).
			Msg("cpu usage at or above threshold; launch not blocked")
		return true, "cpu usage at or above threshold (non-blocking)"
	}
	return true, ""
}
