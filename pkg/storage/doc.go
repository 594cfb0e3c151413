/*
Package storage provides BoltDB-backed persistence for the workspace control
plane: a single-writer durable table of workspace rows.

The storage package implements Store using BoltDB (bbolt) for embedded,
transactional storage: one file (<dataDir>/cradle.db), three buckets
(workspaces, workspaces_archive, lifecycle_stats), JSON-marshaled values,
upsert by id — the same layout discipline the teacher's BoltStore uses for
its own bucket-per-entity design.

# Bucket Layout

	workspaces          Workspace rows for every live or recently-stopped id
	workspaces_archive  Workspace rows moved here by ArchiveOld after 24h stopped
	lifecycle_stats     LifecycleStatsRow, keyed by workspace id (pkg/stats)

bbolt has no secondary indexes; List and Count scan the workspaces bucket
in memory. This is acceptable because ArchiveOld bounds the live bucket's
size — stopped records older than 24h move out on every Cleanup Reaper tick.

# Usage

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer store.Close()

	err = store.Save(ctx, ws)
	moved, err := store.ArchiveOld(ctx)

# Concurrency

All mutations go through db.Update (bbolt's single read-write transaction);
reads use db.View and may run concurrently with each other but not with a
write. Writes are serialized; readers may see a prior committed state.

# See Also

  - pkg/types for the Workspace and LifecycleStatsRow shapes persisted here
  - pkg/reaper for ArchiveOld's caller
*/
package storage
