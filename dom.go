package tether

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// attr returns the value of the named attribute and whether it is present.
func attr(n *html.Node, key string) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or replaces the named attribute.
func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// removeAttr deletes the named attribute, reporting whether it was present.
func removeAttr(n *html.Node, key string) bool {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// contains reports whether n is root or a descendant of root.
func contains(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// inert reports whether n sits inside content that is never rendered
// directly, such as template contents.
func inert(n *html.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && cur.DataAtom == atom.Template {
			return true
		}
	}
	return false
}

// ancestry returns the chain from the tree root down to n, inclusive.
func ancestry(n *html.Node) []*html.Node {
	var chain []*html.Node
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// precedes reports whether a comes before b in document order. An ancestor
// precedes its descendants. Nodes from disjoint trees compare false.
func precedes(a, b *html.Node) bool {
	if a == b {
		return false
	}
	ca, cb := ancestry(a), ancestry(b)
	if ca[0] != cb[0] {
		return false
	}
	i := 0
	for i < len(ca) && i < len(cb) && ca[i] == cb[i] {
		i++
	}
	switch {
	case i == len(ca):
		return true
	case i == len(cb):
		return false
	}
	for s := ca[i].NextSibling; s != nil; s = s.NextSibling {
		if s == cb[i] {
			return true
		}
	}
	return false
}

// elementRoots filters a node list down to the element nodes.
func elementRoots(nodes []*html.Node) []*html.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil && n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out
}
