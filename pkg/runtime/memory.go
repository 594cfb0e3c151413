package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/cuemby/cradle/pkg/types"
	"github.com/cuemby/cradle/pkg/urlscheme"
)

// MemoryRuntime is an in-memory Runtime test double: no containerd, no
// sockets, just a map guarded by a mutex. It implements the exact same
// Runtime contract production code depends on, so tests exercise the real
// calling code path.
type MemoryRuntime struct {
	mu       sync.Mutex
	services map[string]*ServiceRecord
	domain   string

	// FailCreate, when non-nil, is returned by every Create call instead
	// of succeeding — used to simulate LaunchFailed.
	FailCreate error
	// FailAttach, when non-nil, is returned by every AttachBucket call.
	FailAttach error
}

// NewMemoryRuntime creates an empty in-memory runtime.
func NewMemoryRuntime(domain string) *MemoryRuntime {
	return &MemoryRuntime{
		services: make(map[string]*ServiceRecord),
		domain:   domain,
	}
}

func (m *MemoryRuntime) Create(ctx context.Context, cfg CreateConfig) (*CreateResult, error) {
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := "ws-" + uuid.New().String()[:8]
	domain := cfg.Domain
	if domain == "" {
		domain = m.domain
	}

	bucket := ""
	if !cfg.SkipBucketAttachment {
		bucket = cfg.Bucket
	}

	now := time.Now()
	m.services[id] = &ServiceRecord{
		ID:          id,
		ServiceName: types.ServiceName(id),
		Status:      "running",
		Bucket:      bucket,
		CreatedAt:   now,
	}

	return &CreateResult{
		ID:          id,
		ServiceName: types.ServiceName(id),
		URLs:        urlscheme.URLs(domain, id),
		CreatedAt:   now,
	}, nil
}

func (m *MemoryRuntime) AttachBucket(ctx context.Context, id, bucket, region string, creds *BucketCredentials) error {
	if m.FailAttach != nil {
		return m.FailAttach
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	svc, ok := m.services[id]
	if !ok {
		return types.Wrap(types.KindAttachFailed, "no such container: "+id, nil)
	}
	svc.Bucket = bucket
	return nil
}

func (m *MemoryRuntime) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, id)
	return nil
}

func (m *MemoryRuntime) List(ctx context.Context) ([]ServiceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]ServiceRecord, 0, len(m.services))
	for _, svc := range m.services {
		records = append(records, *svc)
	}
	return records, nil
}

func (m *MemoryRuntime) Get(ctx context.Context, id string) (*ServiceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, ok := m.services[id]
	if !ok {
		return nil, types.Wrap(types.KindNotFound, "container not found: "+id, nil)
	}
	cp := *svc
	return &cp, nil
}

// Remove deletes the service record for id without going through Stop,
// letting tests simulate infrastructure drift
// (a service vanishing out from under the control plane).
func (m *MemoryRuntime) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, id)
}
