/*
Package types defines the core data structures shared across the workspace
control plane.

This package contains the fundamental types that represent the control
plane's domain model: workspaces, queued pre-warmed entries, per-workspace
health tracking, and lifecycle statistics rows. Every other package in this
module builds on these types for state management, storage, and API
responses.

# Architecture

The types package is the foundation of the control plane's data model. It
defines:

  - Workspace identity and derivation rules (ID, ServiceName)
  - Workspace lifecycle state and shutdown reasons
  - Queue Registry entries (pre-warmed, assigned, running)
  - Health Monitor tracking state
  - Lifecycle statistics rows
  - A closed error taxonomy shared by every package

All types are designed to be:
  - Serializable (JSON, for BoltDB storage and API responses)
  - Self-documenting (clear field names and comments)
  - Validated (constants for enums, ValidID for workspace identifiers)

# Core Types

The main types in this package are:

Workspace:
  - Workspace: a single IDE container's full record
  - WorkspaceStatus: starting, running, stopping, stopped, failed
  - ShutdownReason: inactivity, manual, error, resource_limit
  - ServiceURLs: editor/desktop/web reverse-proxy URLs
  - ResourceCaps: CPU/memory limits applied to the container

Queue Registry:
  - QueuedEntry: in-memory record of a pre-warmed or claimed container
  - QueueState: pre-warmed, assigned, running

Health Monitor:
  - HealthState: per-workspace consecutive-failure tracking

Lifecycle Stats:
  - LifecycleStatsRow: append-once timeline row per workspace

Errors:
  - Kind: closed error taxonomy (invalid_input, not_found, etc.)
  - Error: Kind-tagged wrapper supporting errors.Is / errors.As

# Usage

Deriving a service name from a workspace id:

	if !types.ValidID(id) {
		return types.Wrap(types.KindInvalidInput, "bad workspace id", nil)
	}
	ws := &types.Workspace{
		ID:          id,
		ServiceName: types.ServiceName(id),
		Bucket:      bucket,
		Status:      types.WorkspaceStarting,
		CreatedAt:   time.Now(),
	}

Matching an error kind at an API boundary:

	if errors.Is(err, types.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

# State Machine

Workspaces follow a state machine:

	starting → running → stopped
	    ↓         ↓
	  failed    failed

Valid state transitions:
  - starting → running (container healthy, editor reachable)
  - running → stopped (stop or shutdown handled by pkg/api; the Cleanup
    Reaper later removes the container and the record)
  - starting|running → failed (launch or health failure exhausted retries)

WorkspaceStopping is defined, but no component sets it.

# Design Patterns

Enumeration Pattern:

	All enums use typed string constants for safety and clarity:
	  type WorkspaceStatus string
	  const (
	      WorkspaceStarting WorkspaceStatus = "starting"
	      WorkspaceRunning  WorkspaceStatus = "running"
	  )

Error Taxonomy Pattern:

	All errors that cross a package boundary are wrapped in *Error with
	one of the Kind constants. Callers use errors.Is against the
	exported Err* sentinels rather than comparing strings.

Optional Fields:

	Optional / not-yet-reached timestamps use pointers:
	  - *time.Time: nil = not yet reached
	  - *int64: nil = not yet computed

# Integration Points

This package integrates with:

  - pkg/storage: persists Workspace and LifecycleStatsRow to BoltDB
  - pkg/queue: manages QueuedEntry in memory
  - pkg/health: manages HealthState in memory
  - pkg/stats: appends LifecycleStatsRow entries
  - pkg/api: serializes Workspace to JSON responses, maps Kind to HTTP status
  - pkg/assignment: drives Workspace through its state machine

# Validation

Key validation rules:

Workspace:
  - ID must satisfy ValidID (DNS-safe, 4-32 chars)
  - ServiceName is always derived via ServiceName(ID), never set directly
  - Bucket is empty while the workspace sits pre-warmed in the pool and is
    set when a bucket is attached

# Thread Safety

All types in this package are plain data: read-safe when shared
immutably, but mutation must be synchronized by the owning package
(pkg/queue for QueuedEntry, pkg/health for HealthState, pkg/storage for
Workspace).

# See Also

  - pkg/storage for the persistence layer
  - pkg/api for the REST surface
  - pkg/assignment for the workspace lifecycle driver
*/
package types
