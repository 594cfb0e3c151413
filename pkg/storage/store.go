package storage

import (
	"context"
	"time"

	"github.com/cuemby/cradle/pkg/types"
)

// ListFilter narrows a List call to a status and applies pagination,
// ordered by created_at descending.
type ListFilter struct {
	Status types.WorkspaceStatus
	Limit  int
	Offset int
}

// CountFilter narrows a Count call to a status; the zero value counts all
// workspaces.
type CountFilter struct {
	Status types.WorkspaceStatus
}

// LifecycleUpdate is a partial update of named Workspace fields, applied
// atomically to a single row.
type LifecycleUpdate struct {
	Status         *types.WorkspaceStatus
	StartedAt      *time.Time
	StoppedAt      *time.Time
	LastActivity   *time.Time
	ShutdownReason *types.ShutdownReason
}

// Store is the durable, single-writer table of Workspace rows that every
// other component reads and mutates through. There are no secondary
// indexes: List, Count and ArchiveOld scan every row to filter by status
// or stopped_at.
type Store interface {
	Save(ctx context.Context, ws *types.Workspace) error
	Get(ctx context.Context, id string) (*types.Workspace, error)
	List(ctx context.Context, filter ListFilter) ([]*types.Workspace, error)
	UpdateLifecycle(ctx context.Context, id string, update LifecycleUpdate) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, filter CountFilter) (int, error)
	ArchiveOld(ctx context.Context) (int, error)

	// SaveStatsRow and the LifecycleStatsRow operations back pkg/stats
	// with the same storage dependency: no second store type for a
	// single additional bucket.
	SaveStatsRow(ctx context.Context, row *types.LifecycleStatsRow) error
	GetStatsRow(ctx context.Context, id string) (*types.LifecycleStatsRow, error)
	UpdateStatsRow(ctx context.Context, id string, fn func(*types.LifecycleStatsRow)) error

	Close() error
}
