package queue

import (
	"sync"
	"time"

	"github.com/cuemby/cradle/pkg/types"
)

// Stats is a point-in-time snapshot of the registry's state counts.
type Stats struct {
	PreWarmed int
	Assigned  int
	Running   int
	Total     int
	Target    int
}

// Registry is the in-memory table of pool members, keyed by workspace id.
// claim_one is the one place state is "found and marked" in a single
// critical section: two concurrent callers never observe the same entry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*types.QueuedEntry
	target  int
}

// NewRegistry creates an empty registry with the given pool target size.
func NewRegistry(target int) *Registry {
	return &Registry{
		entries: make(map[string]*types.QueuedEntry),
		target:  target,
	}
}

// SetTarget updates the configured pool target at runtime.
func (r *Registry) SetTarget(target int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = target
}

// ClaimOne atomically finds any pre-warmed entry and marks it assigned,
// returning the updated entry or nil if the pool is empty. The entry
// returned has already transitioned state and assigned_at before the lock
// is released; no second caller can observe the same entry.
func (r *Registry) ClaimOne() *types.QueuedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.State == types.QueuePreWarmed {
			now := time.Now()
			e.State = types.QueueAssigned
			e.AssignedAt = &now
			cp := *e
			return &cp
		}
	}
	return nil
}

// BindBucket sets bucket on an entry that is already assigned. Returns
// false if the entry is absent or not in the assigned state.
func (r *Registry) BindBucket(id, bucket string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.State != types.QueueAssigned {
		return false
	}
	e.Bucket = bucket
	return true
}

// ReturnToPool resets the entry for id back to pre-warmed, whatever its
// current state, clearing bucket and assigned_at. The Assignment Handler's
// attach-failure path does not use it; it removes the entry instead.
func (r *Registry) ReturnToPool(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.State = types.QueuePreWarmed
	e.Bucket = ""
	e.AssignedAt = nil
}

// Insert adds a pre-warmed entry with created_at set to now.
func (r *Registry) Insert(id, serviceName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = &types.QueuedEntry{
		ID:          id,
		ServiceName: serviceName,
		State:       types.QueuePreWarmed,
		CreatedAt:   time.Now(),
	}
}

// MarkRunning sets the entry for id to running, whatever its current
// state. No other component calls it.
func (r *Registry) MarkRunning(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.State = types.QueueRunning
	}
}

// Remove removes an entry regardless of state.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Get returns a copy of the entry for id, or nil.
func (r *Registry) Get(id string) *types.QueuedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// Has reports whether id is currently tracked.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// IDs returns the ids of every tracked entry, in no particular order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Stats returns a consistent snapshot of state counts.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Target: r.target, Total: len(r.entries)}
	for _, e := range r.entries {
		switch e.State {
		case types.QueuePreWarmed:
			s.PreWarmed++
		case types.QueueAssigned:
			s.Assigned++
		case types.QueueRunning:
			s.Running++
		}
	}
	return s
}

// Deficit returns max(0, target - pre_warmed).
func (r *Registry) Deficit() int {
	s := r.Stats()
	d := s.Target - s.PreWarmed
	if d < 0 {
		return 0
	}
	return d
}
