package tether

import (
	"fmt"
	"testing"

	"golang.org/x/net/html"
)

// recorder collects lifecycle events of the components it creates.
type recorder struct {
	events []string
}

func (r *recorder) record(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) reset() {
	r.events = nil
}

// class returns a class whose instances record connect and disconnect by
// element id, or by name when the element has none.
func (r *recorder) class(name string) Class {
	return NewClass(name, func() Component { return &recorded{rec: r} })
}

type recorded struct {
	Base
	rec           *recorder
	connectErr    error
	disconnectErr error
	onConnect     func(*recorded)
}

func (c *recorded) label() string {
	if id, ok := attr(c.Element(), "id"); ok {
		return id
	}
	return c.Name()
}

func (c *recorded) Connect() error {
	c.rec.record("connect %s", c.label())
	if c.onConnect != nil {
		c.onConnect(c)
	}
	return c.connectErr
}

func (c *recorded) Disconnect() error {
	c.rec.record("disconnect %s", c.label())
	return c.disconnectErr
}

// plain has no lifecycle hooks.
type plain struct {
	Base
}

func plainClass(name string) Class {
	return NewClass(name, func() Component { return &plain{} })
}

func parse(t *testing.T, markup string, opts ...Option) (*Document, *Loop) {
	t.Helper()
	loop := NewLoop().SyncMode()
	doc, err := ParseString(markup, loop, opts...)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc, loop
}

func byID(t *testing.T, doc *Document, id string) *html.Node {
	t.Helper()
	n := doc.GetElementByID(id)
	if n == nil {
		t.Fatalf("no element with id %q", id)
	}
	return n
}

func mustStart(t *testing.T, doc *Document, opts ...StartOption) *Activation {
	t.Helper()
	act, err := Start(doc, opts...)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return act
}

// ids labels components by element id.
func ids(components []Component) []string {
	out := make([]string, 0, len(components))
	for _, c := range components {
		id, _ := attr(c.base().Element(), "id")
		out = append(out, id)
	}
	return out
}

func nodeIDs(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		id, _ := attr(n.Element(), "id")
		out = append(out, id)
	}
	return out
}
