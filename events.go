package tether

import (
	"errors"

	"golang.org/x/net/html"
)

// Event is dispatched to listeners registered on an element and its
// ancestors, target first.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Detail        any

	stopped bool
}

// NewEvent creates an event of the given type.
func NewEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail}
}

// StopPropagation prevents delivery to further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles a dispatched event.
type Listener func(*Event) error

type listener struct {
	fn Listener
}

// AddEventListener registers fn for events of type typ reaching n. The
// returned function removes it and may be called more than once.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) (remove func()) {
	l := &listener{fn: fn}
	byType := d.listeners[n]
	if byType == nil {
		byType = make(map[string][]*listener)
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], l)

	return func() {
		byType := d.listeners[n]
		list := byType[typ]
		for i, cur := range list {
			if cur == l {
				byType[typ] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(byType[typ]) == 0 {
			delete(byType, typ)
		}
		if len(byType) == 0 {
			delete(d.listeners, n)
		}
	}
}

// ListenerCount returns the number of listeners registered on n.
func (d *Document) ListenerCount(n *html.Node) int {
	total := 0
	for _, list := range d.listeners[n] {
		total += len(list)
	}
	return total
}

// Dispatch delivers ev to n and then to each ancestor until propagation is
// stopped. Listener errors do not interrupt delivery and are returned
// joined.
func (d *Document) Dispatch(n *html.Node, ev *Event) error {
	ev.Target = n
	var errs []error
	for cur := n; cur != nil && !ev.stopped; cur = cur.Parent {
		list := d.listeners[cur][ev.Type]
		if len(list) == 0 {
			continue
		}
		ev.CurrentTarget = cur
		snapshot := append([]*listener(nil), list...)
		for _, l := range snapshot {
			if err := l.fn(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	ev.CurrentTarget = nil
	return errors.Join(errs...)
}
