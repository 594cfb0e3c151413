/*
Package events provides an in-memory event broker for workspace lifecycle
notifications.

The events package implements a lightweight pub/sub bus so the Health
Monitor and Queue Maintainer can publish lifecycle transitions (starting,
running, stopped, failed, recovery attempted) without coupling directly to
the Lifecycle Stats collector or any future subscriber (CLI watch, webhook).

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			if event.Type == events.EventCodeEditorAvailable {
				stats.OnCodeEditorAvailable(ctx, event.WorkspaceID)
			}
		}
	}()

	broker.Publish(&events.Event{
		WorkspaceID: id,
		Type:        events.EventWorkspaceRunning,
		Message:     "all three probe endpoints healthy",
	})

# Design Patterns

Buffered publish: Publish sends to the broker's buffered event channel
(100 events) and blocks only while that buffer is full; the broker loop
then delivers to each subscriber, skipping a subscriber whose own buffer
is full rather than blocking. This makes the broker suitable for best-effort notification,
never for anything the control plane depends on for correctness.

# See Also

  - pkg/health for the primary publisher of lifecycle events
  - pkg/stats for the primary subscriber
*/
package events
