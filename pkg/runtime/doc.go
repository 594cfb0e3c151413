/*
Package runtime is the Orchestrator Adapter: the thin boundary between the
control plane and the container runtime that actually launches workspace
containers.

Runtime is an interface with two implementations: ContainerdRuntime for
production (wraps containerd's client API — namespace isolation, OCI spec
generation, task lifecycle) and MemoryRuntime for tests (a plain map, no
socket, same contract).

# Usage

	rt, err := runtime.NewContainerdRuntime(socketPath, workspaceImage, domain)
	result, err := rt.Create(ctx, runtime.CreateConfig{SkipBucketAttachment: true})
	err = rt.AttachBucket(ctx, result.ID, bucket, region, creds)

# Design Patterns

Duck-typed adapter: every caller (Queue Maintainer, Assignment Handler,
Cleanup Reaper) depends on the Runtime interface, never on
*ContainerdRuntime directly, so tests swap in MemoryRuntime without any
conditional test-mode branching in production code.

# See Also

  - pkg/urlscheme for the label/URL scheme attached at Create
  - pkg/queue, pkg/assignment, pkg/reaper for the three callers
*/
package runtime
