package tether

import "golang.org/x/net/html"

// lookupFunc resolves the node bound at an element, or nil.
type lookupFunc func(*html.Node) *Node

// Build turns a flat scan result into a node forest and returns its roots in
// document order. Each node is linked to its nearest ancestor present in
// positions; untagged intermediates are transparent. Positions must be in
// document order.
func Build(positions []*html.Node, markerAttr string) []*Node {
	f := newForest(nil, markerAttr)
	index := make(map[*html.Node]*Node, len(positions))
	nodes := make([]*Node, 0, len(positions))
	for _, el := range positions {
		name, _ := attr(el, markerAttr)
		n := newNode(name, el)
		index[el] = n
		nodes = append(nodes, n)
	}
	lookup := func(el *html.Node) *Node { return index[el] }
	for _, n := range nodes {
		f.attach(f.nearest(n.element, lookup), n)
	}
	return f.Roots()
}

// nearest walks outward from el and returns the first ancestor that lookup
// resolves. The walk never leaves the forest root; a nil root leaves it
// unbounded.
func (f *forest) nearest(el *html.Node, lookup lookupFunc) *Node {
	if el == f.root {
		return nil
	}
	for cur := el.Parent; cur != nil; cur = cur.Parent {
		if n := lookup(cur); n != nil {
			return n
		}
		if cur == f.root {
			return nil
		}
	}
	return nil
}

// link wires a batch of freshly created nodes into the forest. Parents are
// resolved against both the batch and the nodes already bound, so a new
// subtree finds its existing external parent. Bound nodes that now sit under
// a new node are adopted by it. The batch must be in document order.
func (f *forest) link(batch []*Node, bound lookupFunc) {
	index := make(map[*html.Node]*Node, len(batch))
	for _, n := range batch {
		index[n.element] = n
	}
	lookup := func(el *html.Node) *Node {
		if n, ok := index[el]; ok {
			return n
		}
		return bound(el)
	}
	for _, n := range batch {
		f.attach(f.nearest(n.element, lookup), n)
	}
	for _, n := range batch {
		f.reconcile(n.element, lookup, index)
	}
}

// reconcile recomputes the parent of every bound node under el, leaving the
// nodes in skip where they are.
func (f *forest) reconcile(el *html.Node, lookup lookupFunc, skip map[*html.Node]*Node) {
	positions, err := Scan(el, f.markerAttr)
	if err != nil {
		return
	}
	for _, p := range positions {
		if _, fresh := skip[p]; fresh {
			continue
		}
		n := lookup(p)
		if n == nil {
			continue
		}
		f.move(n, f.nearest(p, lookup))
	}
}
