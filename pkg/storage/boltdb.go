package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/cradle/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketWorkspaces        = []byte("workspaces")
	bucketWorkspacesArchive = []byte("workspaces_archive")
	bucketLifecycleStats    = []byte("lifecycle_stats")
)

// archiveAfter is the stopped_at age threshold for ArchiveOld.
const archiveAfter = 24 * time.Hour

// BoltStore implements Store using BoltDB, adapted from the teacher's
// warren.db layout: one bucket per entity, JSON-marshaled values, upsert
// by id. bbolt has no secondary indexes, so List/Count scan the
// (intentionally small, archival-bounded) live bucket in memory.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store rooted at dataDir/cradle.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "cradle.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketWorkspaces, bucketWorkspacesArchive, bucketLifecycleStats} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save upserts a workspace record by id.
func (s *BoltStore) Save(ctx context.Context, ws *types.Workspace) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		data, err := json.Marshal(ws)
		if err != nil {
			return err
		}
		return b.Put([]byte(ws.ID), data)
	})
}

// Get returns the workspace record for id, or a NotFound error.
func (s *BoltStore) Get(ctx context.Context, id string) (*types.Workspace, error) {
	var ws types.Workspace
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		data := b.Get([]byte(id))
		if data == nil {
			return types.Wrap(types.KindNotFound, "workspace not found: "+id, nil)
		}
		return json.Unmarshal(data, &ws)
	})
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// List returns workspaces matching filter, ordered by created_at descending.
func (s *BoltStore) List(ctx context.Context, filter ListFilter) ([]*types.Workspace, error) {
	var all []*types.Workspace
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		return b.ForEach(func(k, v []byte) error {
			var ws types.Workspace
			if err := json.Unmarshal(v, &ws); err != nil {
				return err
			}
			if filter.Status != "" && ws.Status != filter.Status {
				return nil
			}
			all = append(all, &ws)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			return []*types.Workspace{}, nil
		}
		all = all[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

// UpdateLifecycle applies a partial update of named fields to a single row.
func (s *BoltStore) UpdateLifecycle(ctx context.Context, id string, update LifecycleUpdate) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		data := b.Get([]byte(id))
		if data == nil {
			return types.Wrap(types.KindNotFound, "workspace not found: "+id, nil)
		}
		var ws types.Workspace
		if err := json.Unmarshal(data, &ws); err != nil {
			return err
		}

		if update.Status != nil {
			ws.Status = *update.Status
		}
		if update.StartedAt != nil {
			ws.StartedAt = update.StartedAt
		}
		if update.StoppedAt != nil {
			ws.StoppedAt = update.StoppedAt
		}
		if update.LastActivity != nil {
			ws.LastActivity = update.LastActivity
		}
		if update.ShutdownReason != nil {
			ws.ShutdownReason = *update.ShutdownReason
		}

		out, err := json.Marshal(&ws)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
}

// Delete removes a workspace record.
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		return b.Delete([]byte(id))
	})
}

// Count returns the number of workspaces matching filter.
func (s *BoltStore) Count(ctx context.Context, filter CountFilter) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		return b.ForEach(func(k, v []byte) error {
			if filter.Status == "" {
				count++
				return nil
			}
			var ws types.Workspace
			if err := json.Unmarshal(v, &ws); err != nil {
				return err
			}
			if ws.Status == filter.Status {
				count++
			}
			return nil
		})
	})
	return count, err
}

// ArchiveOld moves stopped rows older than 24h into workspaces_archive and
// returns the count moved.
func (s *BoltStore) ArchiveOld(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-archiveAfter)
	moved := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		live := tx.Bucket(bucketWorkspaces)
		archive := tx.Bucket(bucketWorkspacesArchive)

		var toMove []string
		err := live.ForEach(func(k, v []byte) error {
			var ws types.Workspace
			if err := json.Unmarshal(v, &ws); err != nil {
				return err
			}
			if ws.Status == types.WorkspaceStopped && ws.StoppedAt != nil && ws.StoppedAt.Before(cutoff) {
				toMove = append(toMove, string(k))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, id := range toMove {
			data := live.Get([]byte(id))
			if data == nil {
				continue
			}
			if err := archive.Put([]byte(id), data); err != nil {
				return err
			}
			if err := live.Delete([]byte(id)); err != nil {
				return err
			}
			moved++
		}
		return nil
	})
	return moved, err
}

// SaveStatsRow inserts or overwrites a lifecycle stats row.
func (s *BoltStore) SaveStatsRow(ctx context.Context, row *types.LifecycleStatsRow) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLifecycleStats)
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put([]byte(row.ContainerID), data)
	})
}

// GetStatsRow returns the lifecycle stats row for id.
func (s *BoltStore) GetStatsRow(ctx context.Context, id string) (*types.LifecycleStatsRow, error) {
	var row types.LifecycleStatsRow
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLifecycleStats)
		data := b.Get([]byte(id))
		if data == nil {
			return types.Wrap(types.KindNotFound, "stats row not found: "+id, nil)
		}
		return json.Unmarshal(data, &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateStatsRow reads the row for id, applies fn, and writes it back in a
// single transaction, giving callers a read-modify-write critical section
// for the idempotency checks in pkg/stats.
func (s *BoltStore) UpdateStatsRow(ctx context.Context, id string, fn func(*types.LifecycleStatsRow)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLifecycleStats)
		data := b.Get([]byte(id))
		if data == nil {
			return types.Wrap(types.KindNotFound, "stats row not found: "+id, nil)
		}
		var row types.LifecycleStatsRow
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		fn(&row)
		out, err := json.Marshal(&row)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
}
