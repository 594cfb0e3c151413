// Package assignment implements the Assignment Handler: the synchronous
// request path that binds a bucket to a workspace, falling back from a
// pool hit to a fresh launch when the pool is empty or attachment fails.
package assignment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/cuemby/cradle/pkg/bucket"
	"github.com/cuemby/cradle/pkg/events"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/queue"
	"github.com/cuemby/cradle/pkg/resource"
	"github.com/cuemby/cradle/pkg/runtime"
	"github.com/cuemby/cradle/pkg/stats"
	"github.com/cuemby/cradle/pkg/storage"
	"github.com/cuemby/cradle/pkg/types"
	"github.com/cuemby/cradle/pkg/urlscheme"
)

// prober is the subset of *health.Monitor the Assignment Handler needs for
// the eager post-assignment health probe.
type prober interface {
	ProbeNow(ctx context.Context, id string)
}

// Request is the client-supplied input to Assign.
type Request struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	VNCPassword     string
	UserID          string
	SkipRemoteCheck bool
}

// Result is what Assign returns on success.
type Result struct {
	ID          string
	ServiceName string
	URLs        types.ServiceURLs
	Status      types.WorkspaceStatus
}

// Handler serves the synchronous assignment request path.
type Handler struct {
	registry  *queue.Registry
	runtime   runtime.Runtime
	store     storage.Store
	prober    *resource.Prober
	validator *bucket.Validator
	statsC    *stats.Collector
	health    prober
	broker    *events.Broker

	domain string
	logger zerolog.Logger
}

// New creates an Assignment Handler.
func New(registry *queue.Registry, rt runtime.Runtime, store storage.Store, rp *resource.Prober, validator *bucket.Validator, statsC *stats.Collector, health prober, broker *events.Broker, domain string) *Handler {
	return &Handler{
		registry:  registry,
		runtime:   rt,
		store:     store,
		prober:    rp,
		validator: validator,
		statsC:    statsC,
		health:    health,
		broker:    broker,
		domain:    domain,
		logger:    log.WithComponent("assignment-handler"),
	}
}

// Assign runs the nine-step synchronous assignment path: validate the
// bucket, claim from the pool (or launch fresh on a miss or an attach
// failure), persist, and kick off an eager health probe.
func (h *Handler) Assign(ctx context.Context, req Request) (*Result, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AssignmentDuration)

	if !bucket.ValidName(req.Bucket) {
		metrics.AssignmentsTotal.WithLabelValues("invalid_bucket").Inc()
		return nil, types.Wrap(types.KindInvalidBucket, "bucket name fails syntax check: "+req.Bucket, nil)
	}

	var creds *bucket.Credentials
	if req.AccessKeyID != "" {
		creds = &bucket.Credentials{AccessKeyID: req.AccessKeyID, SecretAccessKey: req.SecretAccessKey}
	}

	region := req.Region
	bres, err := h.validator.Validate(ctx, bucket.Request{
		Bucket:          req.Bucket,
		Region:          req.Region,
		Credentials:     creds,
		SkipRemoteCheck: req.SkipRemoteCheck,
	})
	if err != nil {
		metrics.AssignmentsTotal.WithLabelValues("invalid_bucket").Inc()
		return nil, err
	}
	if bres.Region != "" {
		region = bres.Region
	}

	var (
		id, serviceName string
		urls            types.ServiceURLs
		createdAt       time.Time
		usedQueue       bool
	)

	entry := h.registry.ClaimOne()
	if entry != nil {
		rtCreds := toRuntimeCreds(creds)
		if err := h.runtime.AttachBucket(ctx, entry.ID, req.Bucket, region, rtCreds); err != nil {
			// The container is suspect: don't return it to the pool, fall
			// through to a fresh launch instead.
			h.registry.Remove(entry.ID)
			h.logger.Warn().Err(err).Str("workspace_id", entry.ID).Msg("bucket attachment failed, falling back to fresh launch")
		} else {
			h.registry.BindBucket(entry.ID, req.Bucket)
			if existing, gerr := h.store.Get(ctx, entry.ID); gerr == nil {
				id = existing.ID
				serviceName = existing.ServiceName
				urls = existing.URLs
				createdAt = existing.CreatedAt
				usedQueue = true
			} else if rec, rerr := h.runtime.Get(ctx, entry.ID); rerr == nil {
				id = rec.ID
				serviceName = rec.ServiceName
				urls = urlscheme.URLs(h.domain, rec.ID)
				createdAt = rec.CreatedAt
				usedQueue = true
			}
		}
	}

	if !usedQueue {
		allowed, reason := h.prober.CanLaunch()
		if !allowed {
			metrics.AssignmentsTotal.WithLabelValues("resource_exhausted").Inc()
			return nil, types.Wrap(types.KindResourceExhausted, "launch refused: "+reason, nil)
		}

		result, err := h.runtime.Create(ctx, runtime.CreateConfig{
			SkipBucketAttachment: false,
			Bucket:               req.Bucket,
			Region:               region,
			Credentials:          toRuntimeCreds(creds),
			VNCPassword:          req.VNCPassword,
			Domain:               h.domain,
		})
		if err != nil {
			metrics.AssignmentsTotal.WithLabelValues("launch_failed").Inc()
			return nil, types.Wrap(types.KindLaunchFailed, "failed to launch workspace", err)
		}

		id = result.ID
		serviceName = result.ServiceName
		urls = result.URLs
		createdAt = result.CreatedAt
	}

	// Fire-and-forget: failure to record this never affects the request.
	// The stats row is keyed by workspace id, which only exists once the
	// pool claim or fresh launch above has resolved, so it's recorded here
	// rather than at request-accept time.
	h.statsC.OnRequestReceived(ctx, id, req.Bucket, req.UserID)

	ws := &types.Workspace{
		ID:          id,
		ServiceName: serviceName,
		Bucket:      req.Bucket,
		Region:      region,
		Status:      types.WorkspaceStarting,
		CreatedAt:   createdAt,
		URLs:        urls,
		IsPreWarmed: usedQueue,
	}
	if err := h.store.Save(ctx, ws); err != nil {
		metrics.AssignmentsTotal.WithLabelValues("store_unavailable").Inc()
		return nil, types.Wrap(types.KindStoreUnavailable, "failed to persist workspace", err)
	}

	h.broker.Publish(&events.Event{WorkspaceID: id, Type: events.EventWorkspaceStarting})

	if h.health != nil {
		go h.health.ProbeNow(context.Background(), id)
	}

	outcome := "fresh_launch"
	if usedQueue {
		outcome = "pool_hit"
	}
	metrics.AssignmentsTotal.WithLabelValues(outcome).Inc()

	return &Result{ID: id, ServiceName: serviceName, URLs: urls, Status: types.WorkspaceStarting}, nil
}

func toRuntimeCreds(c *bucket.Credentials) *runtime.BucketCredentials {
	if c == nil {
		return nil
	}
	return &runtime.BucketCredentials{AccessKeyID: c.AccessKeyID, SecretAccessKey: c.SecretAccessKey}
}
