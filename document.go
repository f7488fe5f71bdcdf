package tether

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MutationRecord describes one child-list change under Target.
type MutationRecord struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// Document is a live HTML tree plus the bookkeeping that binds components to
// it. All methods must be called from the document's loop.
type Document struct {
	root *html.Node
	loop *Loop
	cfg  *config

	ids       map[*html.Node]uint64
	instances map[uint64]Component

	observers []*Observer
	listeners map[*html.Node]map[string][]*listener
	watches   map[*html.Node]*watch
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node, loop *Loop, opts ...Option) *Document {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Document{
		root:      root,
		loop:      loop,
		cfg:       cfg,
		ids:       make(map[*html.Node]uint64),
		instances: make(map[uint64]Component),
		listeners: make(map[*html.Node]map[string][]*listener),
		watches:   make(map[*html.Node]*watch),
	}
}

// Parse reads a full HTML document.
func Parse(r io.Reader, loop *Loop, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return NewDocument(root, loop, opts...), nil
}

// ParseString is Parse for a string.
func ParseString(markup string, loop *Loop, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(markup), loop, opts...)
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or the root when there is none.
func (d *Document) Body() *html.Node {
	if body := htmlquery.FindOne(d.root, "//body"); body != nil {
		return body
	}
	return d.root
}

// Loop returns the loop the document runs on.
func (d *Document) Loop() *Loop {
	return d.loop
}

// MarkerAttr returns the attribute selecting positions for binding.
func (d *Document) MarkerAttr() string {
	return d.cfg.markerAttr
}

// GetElementByID returns the element with the given id attribute.
func (d *Document) GetElementByID(id string) *html.Node {
	for _, n := range htmlquery.Find(d.root, "//*[@id]") {
		if v, _ := attr(n, "id"); v == id {
			return n
		}
	}
	return nil
}

// QueryAll evaluates an XPath expression against the document.
func (d *Document) QueryAll(expr string) ([]*html.Node, error) {
	return htmlquery.QueryAll(d.root, expr)
}

// QueryOne evaluates an XPath expression and returns the first match.
func (d *Document) QueryOne(expr string) (*html.Node, error) {
	return htmlquery.Query(d.root, expr)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Attr returns the value of an attribute of n.
func (d *Document) Attr(n *html.Node, key string) (string, bool) {
	return attr(n, key)
}

// SetAttr sets an attribute. Attribute changes produce no mutation records.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	setAttr(n, key, val)
}

// RemoveAttr deletes an attribute.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	removeAttr(n, key)
}

// AppendChild appends child to parent, detaching it from its previous
// parent first.
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.InsertBefore(parent, child, nil)
}

// InsertBefore inserts child into parent before ref. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if parent == nil || child == nil {
		return fmt.Errorf("insert: nil node")
	}
	if ref != nil && ref.Parent != parent {
		return fmt.Errorf("insert: reference node is not a child of parent")
	}
	if contains(child, parent) {
		return fmt.Errorf("insert: node would contain itself")
	}
	if child.Parent != nil {
		d.detach(child)
	}
	parent.InsertBefore(child, ref)
	d.notify(MutationRecord{Target: parent, Added: []*html.Node{child}})
	return nil
}

// Remove detaches n from its parent. Removing a detached node is a no-op.
func (d *Document) Remove(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	d.detach(n)
}

func (d *Document) detach(n *html.Node) {
	parent := n.Parent
	parent.RemoveChild(n)
	d.notify(MutationRecord{Target: parent, Removed: []*html.Node{n}})
}

// ReplaceChildren swaps the whole child list of parent for children in a
// single record.
func (d *Document) ReplaceChildren(parent *html.Node, children ...*html.Node) error {
	for _, c := range children {
		if contains(c, parent) {
			return fmt.Errorf("replace: node would contain itself")
		}
		if c.Parent != nil {
			d.detach(c)
		}
	}
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	for _, c := range children {
		parent.AppendChild(c)
	}
	if len(removed) > 0 || len(children) > 0 {
		d.notify(MutationRecord{Target: parent, Added: children, Removed: removed})
	}
	return nil
}

// ParseFragment parses markup in the context of the given element.
func (d *Document) ParseFragment(context *html.Node, markup string) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

// SetInnerHTML replaces the children of n with parsed markup.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := d.ParseFragment(n, markup)
	if err != nil {
		return err
	}
	return d.ReplaceChildren(n, nodes...)
}

// Insert positions accepted by InsertHTML.
const (
	BeforeBegin = "beforebegin"
	AfterBegin  = "afterbegin"
	BeforeEnd   = "beforeend"
	AfterEnd    = "afterend"
)

// InsertHTML parses markup and inserts it relative to target. All inserted
// nodes are reported in one record.
func (d *Document) InsertHTML(target *html.Node, position, markup string) error {
	var parent, ref *html.Node
	switch strings.ToLower(position) {
	case BeforeBegin:
		parent, ref = target.Parent, target
	case AfterBegin:
		parent, ref = target, target.FirstChild
	case BeforeEnd:
		parent = target
	case AfterEnd:
		parent, ref = target.Parent, target.NextSibling
	default:
		return fmt.Errorf("insert html: unknown position %q", position)
	}
	if parent == nil {
		return fmt.Errorf("insert html: %s requires an attached target", position)
	}
	nodes, err := d.ParseFragment(parent, markup)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	for _, n := range nodes {
		parent.InsertBefore(n, ref)
	}
	d.notify(MutationRecord{Target: parent, Added: nodes})
	return nil
}

// Component returns the instance bound at el, or nil.
func (d *Document) Component(el *html.Node) Component {
	id, ok := d.ids[el]
	if !ok {
		return nil
	}
	return d.instances[id]
}

// ComponentID returns the id of the instance bound at el.
func (d *Document) ComponentID(el *html.Node) (uint64, bool) {
	id, ok := d.ids[el]
	return id, ok
}

// ComponentByID returns the live instance with the given id, or nil.
func (d *Document) ComponentByID(id uint64) Component {
	return d.instances[id]
}

// Components returns the instances bound under root in document order.
func (d *Document) Components(root *html.Node) []Component {
	positions, err := Scan(root, d.cfg.markerAttr)
	if err != nil {
		return nil
	}
	var out []Component
	for _, p := range positions {
		if c := d.Component(p); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// publish records c in the arena.
func (d *Document) publish(el *html.Node, id uint64, c Component) {
	d.ids[el] = id
	d.instances[id] = c
	setAttr(el, d.cfg.idAttr, fmt.Sprint(id))
}

// unpublish drops el from the arena if it is still held by id.
func (d *Document) unpublish(el *html.Node, id uint64) {
	if d.ids[el] == id {
		delete(d.ids, el)
	}
	delete(d.instances, id)
	if v, _ := attr(el, d.cfg.idAttr); v == fmt.Sprint(id) {
		removeAttr(el, d.cfg.idAttr)
	}
}

// nodeAt resolves the node bound at el.
func (d *Document) nodeAt(el *html.Node) *Node {
	if c := d.Component(el); c != nil {
		return c.base().node
	}
	return nil
}

func (d *Document) notify(rec MutationRecord) {
	for _, o := range d.observers {
		if contains(o.root, rec.Target) {
			o.enqueue(rec)
		}
	}
}

// Observer delivers the child-list records of a subtree in batches. A batch
// is scheduled once when the first record arrives; records arriving before
// it runs join it, records arriving while it runs form the next one.
type Observer struct {
	doc      *Document
	root     *html.Node
	fn       func([]MutationRecord) error
	debounce time.Duration

	records   []MutationRecord
	scheduled bool
	stopped   bool
	cancel    func()

	// onPending is called when the first record of a batch arrives.
	onPending func()
}

// Observe starts delivering records for the subtree at root to fn.
func (d *Document) Observe(root *html.Node, fn func([]MutationRecord) error) *Observer {
	o := &Observer{doc: d, root: root, fn: fn, debounce: d.cfg.debounce}
	d.observers = append(d.observers, o)
	return o
}

// Pending reports whether records are waiting for delivery.
func (o *Observer) Pending() bool {
	return len(o.records) > 0
}

// TakeRecords empties the queue without delivering it.
func (o *Observer) TakeRecords() []MutationRecord {
	recs := o.records
	o.records = nil
	return recs
}

// Disconnect stops delivery. Queued records are dropped.
func (o *Observer) Disconnect() {
	if o.stopped {
		return
	}
	o.stopped = true
	o.records = nil
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	for i, obs := range o.doc.observers {
		if obs == o {
			o.doc.observers = append(o.doc.observers[:i], o.doc.observers[i+1:]...)
			break
		}
	}
}

func (o *Observer) enqueue(rec MutationRecord) {
	if o.stopped {
		return
	}
	first := len(o.records) == 0
	o.records = append(o.records, rec)
	if first && o.onPending != nil {
		o.onPending()
	}

	if o.debounce > 0 {
		// every record restarts the window
		if o.cancel != nil {
			o.cancel()
		}
		o.cancel = o.doc.loop.schedule(o.debounce, false, o.deliver)
		o.scheduled = true
		return
	}
	if o.scheduled {
		return
	}
	o.scheduled = true
	o.doc.loop.Post(o.deliver)
}

func (o *Observer) deliver() error {
	o.scheduled = false
	o.cancel = nil
	if o.stopped || len(o.records) == 0 {
		return nil
	}
	recs := o.TakeRecords()
	return o.fn(recs)
}
