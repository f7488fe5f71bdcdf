package tether

import "context"

// ChannelWatcher adapts a byte channel into a Watcher. It suits tests and
// sources that already push markup, such as a server-sent stream.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher forwards values from ch through its own goroutine and
// stops forwarding when the Watch context ends.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher hands ch out unchanged. Pair it with a sync-mode
// Loop for deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

// Watch returns the channel markup arrives on.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			var (
				v  []byte
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case v, ok = <-w.ch:
			}
			if !ok {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
