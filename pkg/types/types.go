package types

import (
	"regexp"
	"time"
)

// idPattern matches the DNS-safe workspace id: 4-32 lowercase alphanumerics
// with interior hyphens (no leading/trailing hyphen).
var idPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{2,30})[a-z0-9]$`)

// ValidID reports whether id conforms to the workspace id invariant.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ServiceName derives the orchestrator-visible service name from a workspace
// id. This derivation is an invariant: it is never recomputed or stored
// independently.
func ServiceName(id string) string {
	return "ide-" + id
}

// WorkspaceStatus is the closed set of lifecycle states a Workspace can be in.
type WorkspaceStatus string

const (
	WorkspaceStarting WorkspaceStatus = "starting"
	WorkspaceRunning  WorkspaceStatus = "running"
	WorkspaceStopping WorkspaceStatus = "stopping"
	WorkspaceStopped  WorkspaceStatus = "stopped"
	WorkspaceFailed   WorkspaceStatus = "failed"
)

// ShutdownReason is the closed set of reasons a workspace was stopped.
type ShutdownReason string

const (
	ShutdownInactivity    ShutdownReason = "inactivity"
	ShutdownManual        ShutdownReason = "manual"
	ShutdownError         ShutdownReason = "error"
	ShutdownResourceLimit ShutdownReason = "resource_limit"
)

// ServiceURLs are the three reverse-proxy-facing URLs for a workspace.
type ServiceURLs struct {
	Editor  string `json:"editor"`
	Desktop string `json:"desktop"`
	Web     string `json:"web"`
}

// ResourceCaps are the CPU/memory limits applied to a workspace container.
type ResourceCaps struct {
	CPUCores    float64 `json:"cpu_cores"`
	MemoryBytes int64   `json:"memory_bytes"`
}

// Workspace is the central entity of the control plane.
type Workspace struct {
	ID          string          `json:"id"`
	ServiceName string          `json:"service_name"`
	Bucket      string          `json:"bucket"`
	Region      string          `json:"region"`
	Status      WorkspaceStatus `json:"status"`

	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	StoppedAt      *time.Time     `json:"stopped_at,omitempty"`
	LastActivity   *time.Time     `json:"last_activity,omitempty"`
	ShutdownReason ShutdownReason `json:"shutdown_reason,omitempty"`

	URLs      ServiceURLs  `json:"urls"`
	Resources ResourceCaps `json:"resources"`

	IsPreWarmed bool `json:"is_pre_warmed"`
}

// Uptime returns the seconds a running workspace has been up, or 0 if it is
// not running or has no recorded start time.
func (w *Workspace) Uptime(now time.Time) int64 {
	if w.Status != WorkspaceRunning || w.StartedAt == nil {
		return 0
	}
	d := now.Sub(*w.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

// QueueState is the closed set of states a QueuedEntry moves through.
type QueueState string

const (
	QueuePreWarmed QueueState = "pre-warmed"
	QueueAssigned  QueueState = "assigned"
	QueueRunning   QueueState = "running"
)

// QueuedEntry is the purely in-memory Queue Registry record.
type QueuedEntry struct {
	ID          string
	ServiceName string
	State       QueueState
	CreatedAt   time.Time
	AssignedAt  *time.Time
	Bucket      string
}

// HealthState is the per-workspace in-memory health-tracking record,
// owned exclusively by the Health Monitor.
type HealthState struct {
	ID                  string
	ConsecutiveFailures int
	LastCheck           time.Time
	RecoveryAttempted   bool
}

// LifecycleStatsRow is the append-once, best-effort per-workspace timeline
// row.
type LifecycleStatsRow struct {
	ContainerID           string         `json:"container_id"`
	UserID                string         `json:"user_id,omitempty"`
	Bucket                string         `json:"bucket"`
	RequestReceivedAt     time.Time      `json:"request_received_at"`
	CodeEditorAvailableAt *time.Time     `json:"code_editor_available_at,omitempty"`
	StoppedAt             *time.Time     `json:"stopped_at,omitempty"`
	StartupMS             *int64         `json:"startup_ms,omitempty"`
	ActiveMS              *int64         `json:"active_ms,omitempty"`
	ShutdownReason        ShutdownReason `json:"shutdown_reason,omitempty"`
}
