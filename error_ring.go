package tether

import "sync"

// errorRing keeps the most recent batch errors of a watched root. A nil ring
// is valid and records nothing.
type errorRing struct {
	mu    sync.RWMutex
	buf   []error
	next  int
	count int
}

// newErrorRing returns nil when size is not positive.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{buf: make([]error, size)}
}

func (r *errorRing) push(err error) {
	if r == nil || err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = err
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *errorRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.buf)
	r.next, r.count = 0, 0
}

// all returns the recorded errors, oldest first.
func (r *errorRing) all() []error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}
	out := make([]error, 0, r.count)
	size := len(r.buf)
	for i := r.next - r.count; i < r.next; i++ {
		out = append(out, r.buf[(i+size)%size])
	}
	return out
}
