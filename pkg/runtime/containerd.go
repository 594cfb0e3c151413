package runtime

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"
	"github.com/cuemby/cradle/pkg/types"
	"github.com/cuemby/cradle/pkg/urlscheme"
)

const (
	// DefaultNamespace is the containerd namespace cradle workspaces run in.
	DefaultNamespace = "cradle"

	// DefaultSocketPath is the default containerd socket.
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// Deterministic internal container ports per role, matching the
	// reverse-proxy's backend port expectations.
	portDesktop = 6901
	portEditor  = 8080
	portWeb     = 8081
)

// ContainerdRuntime implements Runtime using containerd.
type ContainerdRuntime struct {
	client    *containerd.Client
	namespace string
	image     string
	domain    string
}

// NewContainerdRuntime creates a new containerd-backed Runtime. image is
// the workspace container image (exposing the editor/desktop/web triple);
// domain is the reverse-proxy domain used to compute external URLs.
func NewContainerdRuntime(socketPath, image, domain string) (*ContainerdRuntime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, types.Wrap(types.KindLaunchFailed, "failed to connect to containerd", err)
	}

	return &ContainerdRuntime{
		client:    client,
		namespace: DefaultNamespace,
		image:     image,
		domain:    domain,
	}, nil
}

// Close closes the containerd client connection.
func (r *ContainerdRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *ContainerdRuntime) ctx(ctx context.Context) context.Context {
	return namespaces.WithNamespace(ctx, r.namespace)
}

// Create launches a new workspace container and starts its task.
func (r *ContainerdRuntime) Create(ctx context.Context, cfg CreateConfig) (*CreateResult, error) {
	ctx = r.ctx(ctx)

	id := "ws-" + uuid.New().String()[:8]
	serviceName := types.ServiceName(id)

	image, err := r.client.GetImage(ctx, r.image)
	if err != nil {
		image, err = r.client.Pull(ctx, r.image, containerd.WithPullUnpack)
		if err != nil {
			return nil, types.Wrap(types.KindLaunchFailed, "failed to pull workspace image "+r.image, err)
		}
	}

	env := []string{fmt.Sprintf("VNC_PASSWORD=%s", cfg.VNCPassword)}
	if !cfg.SkipBucketAttachment {
		env = append(env, fmt.Sprintf("BUCKET=%s", cfg.Bucket), fmt.Sprintf("REGION=%s", cfg.Region))
		if cfg.Credentials != nil {
			env = append(env,
				fmt.Sprintf("AWS_ACCESS_KEY_ID=%s", cfg.Credentials.AccessKeyID),
				fmt.Sprintf("AWS_SECRET_ACCESS_KEY=%s", cfg.Credentials.SecretAccessKey),
			)
		}
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(env),
	}

	labels := containerLabels(cfg.Domain, id)
	if !cfg.SkipBucketAttachment && cfg.Bucket != "" {
		labels["cradle.bucket"] = cfg.Bucket
	}

	ctrdContainer, err := r.client.NewContainer(
		ctx,
		id,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(id+"-snapshot", image),
		containerd.WithNewSpec(opts...),
		containerd.WithContainerLabels(labels),
	)
	if err != nil {
		return nil, types.Wrap(types.KindLaunchFailed, "failed to create container", err)
	}

	task, err := ctrdContainer.NewTask(ctx, cio.NullIO)
	if err != nil {
		return nil, types.Wrap(types.KindLaunchFailed, "failed to create task", err)
	}
	if err := task.Start(ctx); err != nil {
		return nil, types.Wrap(types.KindLaunchFailed, "failed to start task", err)
	}

	domain := cfg.Domain
	if domain == "" {
		domain = r.domain
	}

	return &CreateResult{
		ID:          id,
		ServiceName: serviceName,
		URLs:        urlscheme.URLs(domain, id),
		CreatedAt:   time.Now(),
	}, nil
}

// containerLabels encodes the routing labels the reverse proxy extracts,
// per the path-prefix/strip-prefix/priority scheme in pkg/urlscheme.
func containerLabels(domain, id string) map[string]string {
	labels := urlscheme.BuildLabels(domain, id)
	m := map[string]string{
		"cradle.domain": labels.Domain,
		"cradle.id":     labels.ID,
	}
	for _, rule := range labels.Rules {
		prefix := "cradle.route." + string(rule.Role)
		m[prefix+".path"] = rule.PathPrefix
		m[prefix+".path_slash"] = rule.PathSlash
		m[prefix+".strip_prefix"] = rule.StripPrefix
		m[prefix+".priority"] = fmt.Sprintf("%d", rule.Priority)
		if rule.TLSResolver != "" {
			m[prefix+".tls_resolver"] = rule.TLSResolver
		}
	}
	return m
}

// AttachBucket sends SIGUSR1 to the container's task and then records the
// bucket in the container's cradle.bucket label. The container's
// environment is not changed, and region and creds are not used.
func (r *ContainerdRuntime) AttachBucket(ctx context.Context, id, bucket, region string, creds *BucketCredentials) error {
	ctx = r.ctx(ctx)

	ctrdContainer, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return types.Wrap(types.KindAttachFailed, "failed to load container "+id, err)
	}

	task, err := ctrdContainer.Task(ctx, nil)
	if err != nil {
		return types.Wrap(types.KindAttachFailed, "failed to load task for "+id, err)
	}

	if err := task.Kill(ctx, syscall.SIGUSR1); err != nil {
		return types.Wrap(types.KindAttachFailed, "failed to signal in-container agent for "+id, err)
	}

	if _, err := ctrdContainer.SetLabels(ctx, map[string]string{"cradle.bucket": bucket}); err != nil {
		return types.Wrap(types.KindAttachFailed, "failed to record bucket label for "+id, err)
	}
	return nil
}

// Stop removes the runtime service for id, tolerating an already-gone
// container as success.
func (r *ContainerdRuntime) Stop(ctx context.Context, id string) error {
	ctx = r.ctx(ctx)

	ctrdContainer, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return nil
	}

	if task, err := ctrdContainer.Task(ctx, nil); err == nil {
		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := task.Kill(stopCtx, syscall.SIGTERM); err == nil {
			statusC, waitErr := task.Wait(stopCtx)
			if waitErr == nil {
				select {
				case <-statusC:
				case <-stopCtx.Done():
					_ = task.Kill(ctx, syscall.SIGKILL)
				}
			}
		}
		_, _ = task.Delete(ctx)
	}

	if err := ctrdContainer.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return types.Wrap(types.KindLaunchFailed, "failed to delete container "+id, err)
	}
	return nil
}

// List reads every live workspace container directly from containerd.
func (r *ContainerdRuntime) List(ctx context.Context) ([]ServiceRecord, error) {
	ctx = r.ctx(ctx)

	containers, err := r.client.Containers(ctx)
	if err != nil {
		return nil, types.Wrap(types.KindLaunchFailed, "failed to list containers", err)
	}

	records := make([]ServiceRecord, 0, len(containers))
	for _, c := range containers {
		info, err := c.Info(ctx)
		if err != nil {
			continue
		}
		status := "unknown"
		if task, err := c.Task(ctx, nil); err == nil {
			if s, err := task.Status(ctx); err == nil {
				status = string(s.Status)
			}
		}
		records = append(records, ServiceRecord{
			ID:          c.ID(),
			ServiceName: types.ServiceName(c.ID()),
			Status:      status,
			Bucket:      info.Labels["cradle.bucket"],
			CreatedAt:   info.CreatedAt,
		})
	}
	return records, nil
}

// Get reads a single live container, returning a NotFound error if absent.
func (r *ContainerdRuntime) Get(ctx context.Context, id string) (*ServiceRecord, error) {
	ctx = r.ctx(ctx)

	ctrdContainer, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return nil, types.Wrap(types.KindNotFound, "container not found: "+id, err)
	}

	info, err := ctrdContainer.Info(ctx)
	if err != nil {
		return nil, types.Wrap(types.KindNotFound, "container not found: "+id, err)
	}

	status := "unknown"
	if task, err := ctrdContainer.Task(ctx, nil); err == nil {
		if s, err := task.Status(ctx); err == nil {
			status = string(s.Status)
		}
	}

	return &ServiceRecord{
		ID:          id,
		ServiceName: types.ServiceName(id),
		Status:      status,
		Bucket:      info.Labels["cradle.bucket"],
		CreatedAt:   info.CreatedAt,
	}, nil
}
