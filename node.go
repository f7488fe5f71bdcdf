package tether

import "golang.org/x/net/html"

// Node is the mirror of one bound document position. The document tree owns
// the element; a Node only refers to it.
//
// Parent and children edges follow the nearest bound ancestor of the element,
// so untagged intermediate positions never appear in the mirror. Nodes are
// only mutated by the tree builder and the synchronizer.
type Node struct {
	name     string
	element  *html.Node
	parent   *Node
	children []*Node
	forest   *forest
}

func newNode(name string, element *html.Node) *Node {
	return &Node{name: name, element: element}
}

// Name returns the discriminator read from the marker attribute when the
// node was created.
func (n *Node) Name() string {
	return n.name
}

// Element returns the document position this node represents.
func (n *Node) Element() *html.Node {
	return n.element
}

// Parent returns the nearest enclosing bound node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Root reports whether the node has no bound ancestor.
func (n *Node) Root() bool {
	return n.parent == nil
}

// Children returns a copy of the child list in document order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Siblings returns the other children of the parent, or the other roots of
// the forest for a root node, in document order. It is computed at query
// time and never contains n itself.
func (n *Node) Siblings() []*Node {
	var pool []*Node
	switch {
	case n.parent != nil:
		pool = n.parent.children
	case n.forest != nil:
		pool = n.forest.roots
	}
	out := make([]*Node, 0, len(pool))
	for _, s := range pool {
		if s != n {
			out = append(out, s)
		}
	}
	return out
}

// insertOrdered places child into list keeping document order.
func insertOrdered(list []*Node, child *Node) []*Node {
	i := len(list)
	for i > 0 && precedes(child.element, list[i-1].element) {
		i--
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = child
	return list
}

// removeNode deletes child from list, preserving order.
func removeNode(list []*Node, child *Node) []*Node {
	for i, c := range list {
		if c == child {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// forest holds the parentless nodes of one watched root.
type forest struct {
	root       *html.Node
	markerAttr string
	roots      []*Node
}

func newForest(root *html.Node, markerAttr string) *forest {
	return &forest{root: root, markerAttr: markerAttr}
}

// Roots returns a copy of the root list in document order.
func (f *forest) Roots() []*Node {
	out := make([]*Node, len(f.roots))
	copy(out, f.roots)
	return out
}

// attach links child under parent, or into the root list when parent is nil.
func (f *forest) attach(parent, child *Node) {
	child.forest = f
	child.parent = parent
	if parent == nil {
		f.roots = insertOrdered(f.roots, child)
		return
	}
	parent.children = insertOrdered(parent.children, child)
}

// detach unlinks n from its parent or the root list. Remaining children of
// n are handed to n's parent so the mirror keeps matching the document.
func (f *forest) detach(n *Node) {
	if n.parent == nil {
		f.roots = removeNode(f.roots, n)
	} else {
		n.parent.children = removeNode(n.parent.children, n)
	}
	orphans := n.children
	n.children = nil
	for _, c := range orphans {
		f.attach(n.parent, c)
	}
	n.parent = nil
}

// move relinks n under a new parent if it differs from the current one.
func (f *forest) move(n, parent *Node) {
	if n.parent == parent && n.forest == f {
		return
	}
	if n.parent == nil {
		if n.forest != nil {
			n.forest.roots = removeNode(n.forest.roots, n)
		}
	} else {
		n.parent.children = removeNode(n.parent.children, n)
	}
	f.attach(parent, n)
}
