package tether

import (
	"errors"
	"sync/atomic"

	"golang.org/x/net/html"
)

// watch keeps the bound instances under one root in step with the document.
// Mutation records are coalesced by an Observer; each delivered batch is
// applied removals first, then additions.
type watch struct {
	doc      *Document
	root     *html.Node
	registry *Registry
	forest   *forest
	observer *Observer
	errors   *errorRing

	state atomic.Int32
}

func newWatch(doc *Document, root *html.Node, registry *Registry) *watch {
	w := &watch{
		doc:      doc,
		root:     root,
		registry: registry,
		forest:   newForest(root, doc.cfg.markerAttr),
		errors:   newErrorRing(doc.cfg.errorHistory),
	}
	w.state.Store(int32(StateIdle))
	return w
}

// start begins observing the root.
func (w *watch) start() {
	w.observer = w.doc.Observe(w.root, w.apply)
	w.observer.onPending = func() {
		if w.State() == StateIdle {
			w.transition(StateCollecting)
		}
	}
	w.doc.watches[w.root] = w
	claimed := w.claim()
	w.doc.cfg.logger.Info().Str("root", describe(w.root)).Int("claimed", claimed).Dur("debounce", w.doc.cfg.debounce).Msg("watch started")
	emit(WatchStarted, KeyDebounce.Field(w.doc.cfg.debounce))
}

// stop ends observation. Bound instances stay bound.
func (w *watch) stop() {
	if w.State() == StateStopped {
		return
	}
	if w.observer != nil {
		w.observer.Disconnect()
	}
	if w.doc.watches[w.root] == w {
		delete(w.doc.watches, w.root)
	}
	w.transition(StateStopped)
	w.doc.cfg.logger.Info().Str("root", describe(w.root)).Msg("watch stopped")
	emit(WatchStopped)
}

// State returns the current synchronizer state.
func (w *watch) State() State {
	return State(w.state.Load())
}

func (w *watch) transition(to State) {
	from := State(w.state.Swap(int32(to)))
	if from == to {
		return
	}
	w.doc.cfg.metrics.OnStateChange(from, to)
	emit(WatchStateChanged,
		KeyOldState.Field(from.String()),
		KeyNewState.Field(to.String()),
	)
}

// delta is the union of element roots added and removed by a batch.
type delta struct {
	added   []*html.Node
	removed []*html.Node
}

func collect(records []MutationRecord) delta {
	var d delta
	seenAdded := make(map[*html.Node]struct{})
	seenRemoved := make(map[*html.Node]struct{})
	for _, rec := range records {
		for _, n := range elementRoots(rec.Removed) {
			if _, ok := seenRemoved[n]; !ok {
				seenRemoved[n] = struct{}{}
				d.removed = append(d.removed, n)
			}
		}
		for _, n := range elementRoots(rec.Added) {
			if _, ok := seenAdded[n]; !ok {
				seenAdded[n] = struct{}{}
				d.added = append(d.added, n)
			}
		}
	}
	return d
}

// apply processes one batch. Bookkeeping always completes; lifecycle errors
// are collected and returned joined so the loop reports them.
func (w *watch) apply(records []MutationRecord) error {
	if w.State() == StateStopped {
		return nil
	}
	w.transition(StateApplying)
	start := w.doc.loop.clock.Now()
	d := collect(records)

	w.doc.cfg.metrics.OnChangeReceived()
	emit(BatchReceived,
		KeyRecords.Field(len(records)),
		KeyAdded.Field(len(d.added)),
		KeyRemoved.Field(len(d.removed)),
	)

	var errs []error

	// Removals. A subtree removed and inserted again is disconnected here
	// and bound afresh by the additions below.
	released := 0
	for _, el := range d.removed {
		n, err := w.teardown(el)
		released += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	// Additions.
	created, err := w.bind(w.candidates(d.added))
	if err != nil {
		errs = append(errs, err)
	}

	next := StateIdle
	if w.observer.Pending() {
		next = StateCollecting
	}
	w.transition(next)

	elapsed := w.doc.loop.clock.Since(start)
	result := errors.Join(errs...)
	if result != nil {
		w.errors.push(result)
		w.doc.cfg.metrics.OnBatchFailed(elapsed)
		w.doc.cfg.logger.Warn().Err(result).Int("bound", len(created)).Int("released", released).Msg("batch applied with errors")
		emit(BatchFailed, KeyError.Field(result.Error()), KeyDuration.Field(elapsed))
		return result
	}
	w.doc.cfg.metrics.OnBatchApplied(len(created), released, elapsed)
	w.doc.cfg.logger.Debug().Int("bound", len(created)).Int("released", released).Dur("duration", elapsed).Msg("batch applied")
	emit(BatchApplied,
		KeyBound.Field(len(created)),
		KeyRemoved.Field(released),
		KeyDuration.Field(elapsed),
	)
	return nil
}

// teardown closes every instance bound in the subtree at el, deepest first,
// and reports how many were released.
func (w *watch) teardown(el *html.Node) (int, error) {
	positions, err := Scan(el, w.doc.cfg.markerAttr)
	if err != nil {
		return 0, err
	}
	var errs []error
	released := 0
	for i := len(positions) - 1; i >= 0; i-- {
		c := w.doc.Component(positions[i])
		if c == nil {
			continue
		}
		released++
		if err := c.base().Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return released, errors.Join(errs...)
}

// owns reports whether el is under the root and not under a nested root
// watched by another synchronizer.
func (w *watch) owns(el *html.Node) bool {
	for cur := el; cur != nil && cur != w.root; cur = cur.Parent {
		if other, ok := w.doc.watches[cur]; ok && other != w {
			return false
		}
	}
	return contains(w.root, el)
}

// claim moves the live instances it owns into the forest, so a restarted
// root or a root nested in a watched one keeps its existing links.
func (w *watch) claim() int {
	claimed := 0
	for _, c := range w.doc.Components(w.root) {
		n := c.base().node
		if n.forest == w.forest || !w.owns(n.element) {
			continue
		}
		w.forest.move(n, w.forest.nearest(n.element, w.lookup))
		claimed++
	}
	return claimed
}

// register merges classes and binds the positions they newly cover.
func (w *watch) register(classes []Class) ([]Component, error) {
	for _, c := range classes {
		if err := ValidateClass(c); err != nil {
			return nil, err
		}
	}
	w.registry.Add(classes...)
	return w.bind(w.candidates([]*html.Node{w.root}))
}

// roots returns the instances at the top of the forest.
func (w *watch) roots() []Component {
	nodes := w.forest.Roots()
	out := make([]Component, 0, len(nodes))
	for _, n := range nodes {
		if c := w.doc.Component(n.element); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// describe names an element for log output.
func describe(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type != html.ElementNode {
		return "#document"
	}
	if id, ok := attr(n, "id"); ok {
		return n.Data + "#" + id
	}
	return n.Data
}
