package tether

import "context"

// Watcher observes a markup source and emits its raw contents on a channel.
// Implementations must emit the current value as soon as Watch is called so
// the first render does not wait for a change.
type Watcher interface {
	// Watch begins observing the source. The channel is closed when ctx is
	// canceled or the source fails for good.
	Watch(ctx context.Context) (<-chan []byte, error)
}
