package queue

import (
	"sync"
	"testing"

	"github.com/cuemby/cradle/pkg/types"
)

func TestClaimOneConcurrentUniqueness(t *testing.T) {
	r := NewRegistry(10)
	for i := 0; i < 10; i++ {
		r.Insert(idFor(i), "ide-"+idFor(i))
	}

	claimed := make([]*types.QueuedEntry, 20)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed[i] = r.ClaimOne()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	for _, e := range claimed {
		if e == nil {
			continue
		}
		seen[e.ID]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("entry %s claimed %d times, want exactly once", id, count)
		}
	}
	if len(seen) != 10 {
		t.Errorf("expected exactly 10 distinct entries claimed, got %d", len(seen))
	}
}

func TestClaimOneEmptyPoolReturnsNil(t *testing.T) {
	r := NewRegistry(2)
	if e := r.ClaimOne(); e != nil {
		t.Fatalf("expected nil claim from empty registry, got %+v", e)
	}
}

func TestReturnToPoolResetsState(t *testing.T) {
	r := NewRegistry(1)
	r.Insert("ws-a", "ide-ws-a")
	entry := r.ClaimOne()
	if entry == nil {
		t.Fatal("expected a claim")
	}
	r.BindBucket(entry.ID, "my-bucket")

	r.ReturnToPool(entry.ID)

	got := r.Get(entry.ID)
	if got.State != types.QueuePreWarmed {
		t.Errorf("state = %s, want %s", got.State, types.QueuePreWarmed)
	}
	if got.Bucket != "" {
		t.Errorf("bucket = %q, want empty after return to pool", got.Bucket)
	}
}

func TestDeficit(t *testing.T) {
	r := NewRegistry(3)
	if d := r.Deficit(); d != 3 {
		t.Errorf("deficit = %d, want 3 for empty registry", d)
	}

	r.Insert("ws-a", "ide-ws-a")
	r.Insert("ws-b", "ide-ws-b")
	if d := r.Deficit(); d != 1 {
		t.Errorf("deficit = %d, want 1", d)
	}

	r.Insert("ws-c", "ide-ws-c")
	if d := r.Deficit(); d != 0 {
		t.Errorf("deficit = %d, want 0", d)
	}
}

func idFor(i int) string {
	return "ws-" + string(rune('a'+i))
}
