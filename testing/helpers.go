// Package testing provides test utilities for code built on tether.
package testing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/tether"
	"golang.org/x/net/html"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// FlushUntil flushes a sync-mode loop until condition holds or timeout is
// reached. Use it when tasks are posted from timer goroutines.
func FlushUntil(t *testing.T, loop *tether.Loop, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		loop.Flush()
		return condition()
	})
}

// RequireState fails the test immediately if the activation is not in the
// expected state.
func RequireState(t *testing.T, a *tether.Activation, expected tether.State) {
	t.Helper()
	if got := a.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// MustParse parses markup into a document driven by a new sync-mode loop.
func MustParse(t *testing.T, markup string, opts ...tether.Option) (*tether.Document, *tether.Loop) {
	t.Helper()
	loop := tether.NewLoop().SyncMode()
	doc, err := tether.ParseString(markup, loop, opts...)
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc, loop
}

// MustFind returns the element with the given id attribute.
func MustFind(t *testing.T, doc *tether.Document, id string) *html.Node {
	t.Helper()
	n := doc.GetElementByID(id)
	if n == nil {
		t.Fatalf("no element with id %q", id)
	}
	return n
}

// Recorder collects lifecycle events in the order they happen.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a formatted event.
func (r *Recorder) Record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Class returns a class whose instances record "connect <label>" and
// "disconnect <label>", where label is the element id or the class name.
func (r *Recorder) Class(name string) tether.Class {
	return tether.NewClass(name, func() tether.Component {
		return &Recorded{rec: r}
	})
}

// Recorded is the component produced by Recorder.Class.
type Recorded struct {
	tether.Base
	rec *Recorder
}

// Label names the instance in recorded events.
func (c *Recorded) Label() string {
	if id, ok := c.Document().Attr(c.Element(), "id"); ok {
		return id
	}
	return c.Name()
}

func (c *Recorded) Connect() error {
	c.rec.Record("connect %s", c.Label())
	return nil
}

func (c *Recorded) Disconnect() error {
	c.rec.Record("disconnect %s", c.Label())
	return nil
}
