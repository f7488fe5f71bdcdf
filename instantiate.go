package tether

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/net/html"
)

// bind instantiates the classes registered for candidates and brings them
// live in three phases:
//
//  1. create every instance and publish it in the arena,
//  2. link the whole batch into the forest, adopting bound descendants,
//  3. connect every instance in document order.
//
// No Connect hook runs before the batch is fully linked. Candidates must be
// unbound, registered and in document order. Connect failures do not stop
// the remaining connects; they are returned joined.
func (w *watch) bind(candidates []*html.Node) ([]Component, error) {
	var errs []error
	attrName := w.doc.cfg.markerAttr

	batch := make([]*Node, 0, len(candidates))
	created := make([]Component, 0, len(candidates))
	for _, el := range candidates {
		name, _ := attr(el, attrName)
		class, ok := w.registry.Lookup(name)
		if !ok || w.doc.Component(el) != nil {
			continue
		}
		c := class.New()
		if c == nil || c.base() == nil {
			errs = append(errs, &ConfigurationError{Name: name, Err: fmt.Errorf("%w: factory returned no instance", ErrInvalidClass)})
			continue
		}
		b := c.base()
		if b.doc != nil {
			errs = append(errs, &ConfigurationError{Name: name, Err: fmt.Errorf("%w: factory returned a bound instance", ErrInvalidClass)})
			continue
		}
		n := newNode(name, el)
		b.self, b.doc, b.node, b.id = c, w.doc, n, nextID()
		w.doc.publish(el, b.id, c)
		batch = append(batch, n)
		created = append(created, c)
	}

	w.forest.link(batch, w.lookup)

	for _, c := range created {
		b := c.base()
		if b.dead {
			continue
		}
		if conn, ok := c.(Connecter); ok {
			if err := conn.Connect(); err != nil {
				errs = append(errs, b.failure(PhaseConnect, err))
			}
		}
		w.doc.cfg.metrics.OnConnect(b.node.name)
		w.doc.cfg.logger.Debug().Str("name", b.node.name).Uint64("id", b.id).Msg("component connected")
		emit(ComponentConnected, KeyName.Field(b.node.name), KeyComponentID.Field(int(b.id)))
	}
	return created, errors.Join(errs...)
}

// lookup resolves the node bound at el within this watch's forest.
func (w *watch) lookup(el *html.Node) *Node {
	n := w.doc.nodeAt(el)
	if n == nil || n.forest != w.forest {
		return nil
	}
	return n
}

// candidates returns the unbound, registered positions under roots that this
// watch owns, in document order and without duplicates.
func (w *watch) candidates(roots []*html.Node) []*html.Node {
	seen := make(map[*html.Node]struct{})
	var out []*html.Node
	for _, r := range roots {
		if !w.owns(r) {
			continue
		}
		positions, err := Scan(r, w.doc.cfg.markerAttr)
		if err != nil {
			w.doc.cfg.logger.Warn().Err(err).Msg("scan failed")
			continue
		}
		for _, p := range positions {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			if w.doc.Component(p) != nil || !w.owns(p) {
				continue
			}
			name, _ := attr(p, w.doc.cfg.markerAttr)
			if !w.registry.Has(name) {
				continue
			}
			out = append(out, p)
		}
	}
	sortDocumentOrder(out)
	return out
}

// sortDocumentOrder sorts nodes of one tree in place.
func sortDocumentOrder(nodes []*html.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return precedes(nodes[i], nodes[j])
	})
}
