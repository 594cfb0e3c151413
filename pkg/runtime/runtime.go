package runtime

import (
	"context"
	"time"

	"github.com/cuemby/cradle/pkg/types"
)

// BucketCredentials carries the caller-scoped object-storage credentials
// passed through attach_bucket or create, never stored beyond the
// Orchestrator Adapter call that uses them.
type BucketCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// CreateConfig is the enumerated set of options accepted by Create.
type CreateConfig struct {
	SkipBucketAttachment bool
	Bucket               string
	Region               string
	Credentials          *BucketCredentials
	VNCPassword          string
	Domain               string
}

// CreateResult is what Create returns on success.
type CreateResult struct {
	ID          string
	ServiceName string
	URLs        types.ServiceURLs
	CreatedAt   time.Time
}

// ServiceRecord is what List/Get return: the live infrastructure's own
// view of a workspace service, authoritative over the persistent store.
type ServiceRecord struct {
	ID          string
	ServiceName string
	Status      string
	Bucket      string
	CreatedAt   time.Time
}

// Runtime is the Orchestrator Adapter contract: the thin boundary over the
// container runtime that the rest of the control plane depends on only
// through this interface, never through a concrete implementation.
type Runtime interface {
	// Create launches a new workspace service and returns its id, derived
	// service name, external URLs, and creation time. Generates an id
	// conforming to the DNS-safe workspace id pattern ("ws-" plus eight
	// characters of a random UUID); the id is not checked against ids the
	// adapter already knows about.
	Create(ctx context.Context, cfg CreateConfig) (*CreateResult, error)

	// AttachBucket idempotently updates a running service's environment so
	// its in-container agent picks up the bucket.
	AttachBucket(ctx context.Context, id, bucket, region string, creds *BucketCredentials) error

	// Stop removes the runtime service for id. Returns nil if the service
	// is already gone; that case is not reported separately from a
	// successful removal.
	Stop(ctx context.Context, id string) error

	// List reads every live workspace service directly from the runtime.
	List(ctx context.Context) ([]ServiceRecord, error)

	// Get reads a single live workspace service, or returns a NotFound
	// error if it does not exist.
	Get(ctx context.Context, id string) (*ServiceRecord, error)
}
