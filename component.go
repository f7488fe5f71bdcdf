package tether

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Component is a bound instance. Implementations embed Base by value:
//
//	type Slideshow struct {
//		tether.Base
//		index int
//	}
//
// and may implement Connecter and Disconnecter.
type Component interface {
	base() *Base
}

// Connecter is implemented by components that run setup once they are linked
// into the tree. Connect runs after every instance of its batch is linked, so
// Parent, Children and Siblings already reflect the batch.
type Connecter interface {
	Connect() error
}

// Disconnecter is implemented by components that run teardown before their
// cleanup actions are drained.
type Disconnecter interface {
	Disconnect() error
}

// componentIDs hands out process-wide unique instance ids.
var componentIDs atomic.Uint64

func nextID() uint64 {
	return componentIDs.Add(1)
}

// Base carries the bookkeeping shared by every component: identity, tree
// links and the cleanup registry.
type Base struct {
	self     Component
	doc      *Document
	node     *Node
	id       uint64
	cleanups []func() error
	dead     bool
}

func (b *Base) base() *Base {
	return b
}

// ID returns the instance id, also mirrored in the id attribute of the
// element.
func (b *Base) ID() uint64 {
	return b.id
}

// Name returns the discriminator the instance was bound for.
func (b *Base) Name() string {
	if b.node == nil {
		return ""
	}
	return b.node.name
}

// Node returns the mirror node.
func (b *Base) Node() *Node {
	return b.node
}

// Element returns the bound document position.
func (b *Base) Element() *html.Node {
	if b.node == nil {
		return nil
	}
	return b.node.element
}

// Document returns the document the instance is bound in.
func (b *Base) Document() *Document {
	return b.doc
}

// Live reports whether the instance is still bound.
func (b *Base) Live() bool {
	return b.doc != nil && !b.dead && b.doc.ComponentByID(b.id) == b.self
}

// Parent returns the instance bound at the nearest bound ancestor, or nil.
func (b *Base) Parent() Component {
	if b.node == nil || b.node.parent == nil {
		return nil
	}
	return b.doc.Component(b.node.parent.element)
}

// Children returns the instances directly below this one, in document order.
func (b *Base) Children() []Component {
	if b.node == nil {
		return nil
	}
	return b.components(b.node.children)
}

// Siblings returns the instances sharing this one's parent (or the other
// roots for a root instance) whose discriminator is name. An empty name
// matches every sibling.
func (b *Base) Siblings(name string) []Component {
	if b.node == nil {
		return nil
	}
	var picked []*Node
	for _, s := range b.node.Siblings() {
		if name == "" || s.name == name {
			picked = append(picked, s)
		}
	}
	return b.components(picked)
}

func (b *Base) components(nodes []*Node) []Component {
	out := make([]Component, 0, len(nodes))
	for _, n := range nodes {
		if c := b.doc.Component(n.element); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Ref returns the descendants of the element whose ref attribute is name,
// in document order. Descendants of nested bound positions are included.
// The result is always a slice: one match yields a single element and no
// match yields an empty result.
func (b *Base) Ref(name string) []*html.Node {
	el := b.Element()
	if el == nil {
		return nil
	}
	var out []*html.Node
	for _, n := range htmlquery.Find(el, fmt.Sprintf("descendant::*[@%s]", b.doc.cfg.refAttr)) {
		if v, _ := attr(n, b.doc.cfg.refAttr); v == name {
			out = append(out, n)
		}
	}
	return out
}

// Refs groups every ref descendant by name.
func (b *Base) Refs() map[string][]*html.Node {
	el := b.Element()
	if el == nil {
		return nil
	}
	out := make(map[string][]*html.Node)
	for _, n := range htmlquery.Find(el, fmt.Sprintf("descendant::*[@%s]", b.doc.cfg.refAttr)) {
		v, _ := attr(n, b.doc.cfg.refAttr)
		out[v] = append(out[v], n)
	}
	return out
}

// RegisterCleanup adds fn to the actions run when the instance is closed.
// Actions run in registration order. After Close, fn is returned but never
// invoked.
func (b *Base) RegisterCleanup(fn func() error) func() error {
	if fn == nil || b.dead {
		return fn
	}
	b.cleanups = append(b.cleanups, fn)
	return fn
}

// On listens for events of type typ reaching target until the instance is
// closed. The returned function removes the listener early.
func (b *Base) On(target *html.Node, typ string, fn Listener) (remove func()) {
	remove = b.doc.AddEventListener(target, typ, fn)
	b.RegisterCleanup(func() error {
		remove()
		return nil
	})
	return remove
}

// Emit dispatches an event from the instance's element.
func (b *Base) Emit(typ string, detail any) error {
	return b.doc.Dispatch(b.Element(), NewEvent(typ, detail))
}

// Timeout runs fn on the loop once d has elapsed, unless the instance is
// closed first.
func (b *Base) Timeout(fn func() error, d time.Duration) (cancel func()) {
	return b.every(fn, d, false)
}

// Interval runs fn on the loop every d until the instance is closed.
func (b *Base) Interval(fn func() error, d time.Duration) (cancel func()) {
	return b.every(fn, d, true)
}

func (b *Base) every(fn func() error, d time.Duration, repeat bool) func() {
	cancel := b.doc.loop.schedule(d, repeat, fn)
	b.RegisterCleanup(func() error {
		cancel()
		return nil
	})
	return cancel
}

// Close disconnects the instance: the Disconnect hook runs, cleanup actions
// are drained in registration order, and the instance is unlinked from its
// parent and released. Close runs at most once; later calls return nil.
//
// Every action runs even if an earlier one fails. Failures are returned
// joined, each wrapped in a LifecycleError, after the instance has been
// released. A panicking hook still leaves the instance released.
func (b *Base) Close() error {
	if b.dead || b.doc == nil {
		return nil
	}
	b.dead = true
	defer b.doc.release(b)

	var errs []error
	if d, ok := b.self.(Disconnecter); ok {
		if err := d.Disconnect(); err != nil {
			errs = append(errs, b.failure(PhaseDisconnect, err))
		}
	}
	cleanups := b.cleanups
	b.cleanups = nil
	for _, fn := range cleanups {
		if err := fn(); err != nil {
			errs = append(errs, b.failure(PhaseCleanup, err))
		}
	}

	return errors.Join(errs...)
}

func (b *Base) failure(phase Phase, err error) error {
	emit(ComponentFailed,
		KeyName.Field(b.Name()),
		KeyComponentID.Field(int(b.id)),
		KeyPhase.Field(string(phase)),
		KeyError.Field(err.Error()),
	)
	return &LifecycleError{Phase: phase, Name: b.Name(), ID: b.id, Err: err}
}

// release unlinks a closed instance from its forest and the arena.
func (d *Document) release(b *Base) {
	if f := b.node.forest; f != nil {
		f.detach(b.node)
	}
	d.unpublish(b.node.element, b.id)
	d.cfg.metrics.OnDisconnect(b.node.name)
	d.cfg.logger.Debug().Str("name", b.node.name).Uint64("id", b.id).Msg("component disconnected")
	emit(ComponentDisconnected, KeyName.Field(b.node.name), KeyComponentID.Field(int(b.id)))
}
