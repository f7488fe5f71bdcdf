package tether

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/tether/internal/testutil/testlog"
)

func TestStart_Validation(t *testing.T) {
	t.Run("nothing tagged", func(t *testing.T) {
		doc, _ := parse(t, `<html><body><p>plain</p></body></html>`)
		act, err := Start(doc, WithClasses(plainClass("box")))
		if act != nil {
			t.Error("expected no activation")
		}
		if !errors.Is(err, ErrNoPositions) || !IsConfigurationError(err) {
			t.Fatalf("expected ErrNoPositions configuration error, got %v", err)
		}
		if err.Error() != "tether: no bound positions found" {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("unregistered discriminator is named", func(t *testing.T) {
		rec := &recorder{}
		doc, _ := parse(t, `<html><body><div id="a" data-component="box"></div><div data-component="X"></div></body></html>`)
		_, err := Start(doc, WithClasses(rec.class("box")))

		var ce *ConfigurationError
		if !errors.As(err, &ce) || ce.Name != "X" || !errors.Is(err, ErrUnregistered) {
			t.Fatalf("expected unregistered X, got %v", err)
		}
		if len(rec.events) != 0 {
			t.Errorf("nothing should be bound, got %v", rec.events)
		}
		if doc.Component(byID(t, doc, "a")) != nil {
			t.Error("a should stay unbound")
		}
	})

	t.Run("detached root", func(t *testing.T) {
		doc, _ := parse(t, `<html><body><div id="r"><p data-component="box"></p></div></body></html>`)
		r := byID(t, doc, "r")
		doc.Remove(r)
		if _, err := Start(doc, WithRoot(r), WithClasses(plainClass("box"))); !errors.Is(err, ErrDetached) {
			t.Errorf("expected ErrDetached, got %v", err)
		}
	})

	t.Run("invalid class", func(t *testing.T) {
		doc, _ := parse(t, `<html><body><div data-component="box"></div></body></html>`)
		_, err := Start(doc, WithClasses(Class{Name: "box"}))
		if !errors.Is(err, ErrInvalidClass) {
			t.Fatalf("expected ErrInvalidClass, got %v", err)
		}
	})

	t.Run("factory returning nil", func(t *testing.T) {
		doc, _ := parse(t, `<html><body><div id="a" data-component="box"></div><div id="b" data-component="item"></div></body></html>`)
		act, err := Start(doc, WithClasses(
			NewClass("box", func() Component { return nil }),
			plainClass("item"),
		))
		if !errors.Is(err, ErrInvalidClass) {
			t.Fatalf("expected ErrInvalidClass, got %v", err)
		}
		if act == nil {
			t.Fatal("activation should be usable")
		}
		if diff := cmp.Diff([]string{"b"}, ids(act.Roots)); diff != "" {
			t.Errorf("roots mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestStart_Binding(t *testing.T) {
	t.Run("connects in document order after linking", func(t *testing.T) {
		rec := &recorder{}
		doc, _ := parse(t, nestedMarkup)
		var parentsAtConnect []string
		item := NewClass("item", func() Component {
			return &recorded{rec: rec, onConnect: func(c *recorded) {
				parentsAtConnect = append(parentsAtConnect, ids([]Component{c.Parent()})...)
			}}
		})

		act := mustStart(t, doc, WithClasses(rec.class("box"), item))

		want := []string{"connect A", "connect B", "connect C", "connect D", "connect E"}
		if diff := cmp.Diff(want, rec.events); diff != "" {
			t.Errorf("connect order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"B", "A"}, parentsAtConnect); diff != "" {
			t.Errorf("parents at connect mismatch (-want +got):\n%s", diff)
		}
		if act.Root() != doc.Body() {
			t.Error("root should default to body")
		}
		if act.State() != StateIdle {
			t.Errorf("state = %v, want idle", act.State())
		}
	})

	t.Run("children visible to an ancestor's connect", func(t *testing.T) {
		rec := &recorder{}
		doc, _ := parse(t, nestedMarkup)
		var seen []string
		box := NewClass("box", func() Component {
			return &recorded{rec: rec, onConnect: func(c *recorded) {
				if c.label() == "A" {
					seen = ids(c.Children())
				}
			}}
		})
		mustStart(t, doc, WithClasses(box, rec.class("item")))
		if diff := cmp.Diff([]string{"B", "D", "E"}, seen); diff != "" {
			t.Errorf("children at connect mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("connect errors return a usable activation", func(t *testing.T) {
		rec := &recorder{}
		doc, _ := parse(t, nestedMarkup)
		errBoom := errors.New("boom")
		item := NewClass("item", func() Component {
			return &recorded{rec: rec, connectErr: errBoom}
		})

		act, err := Start(doc, WithClasses(rec.class("box"), item))
		if act == nil {
			t.Fatal("expected an activation")
		}
		var le *LifecycleError
		if !errors.As(err, &le) || le.Phase != PhaseConnect || !errors.Is(err, errBoom) {
			t.Fatalf("expected connect LifecycleError, got %v", err)
		}
		if len(rec.events) != 5 {
			t.Errorf("every connect should run, got %v", rec.events)
		}
		if !componentAt(t, doc, "C").Live() {
			t.Error("failed instance stays bound")
		}
	})

	t.Run("start is idempotent", func(t *testing.T) {
		rec := &recorder{}
		doc, _ := parse(t, nestedMarkup)
		first := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		rec.reset()

		second := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		if len(rec.events) != 0 {
			t.Errorf("second start must not recreate instances, got %v", rec.events)
		}
		if first.Roots[0] != second.Roots[0] {
			t.Error("roots should be the same instances")
		}
		if first.w != second.w {
			t.Error("second start should reuse the synchronizer")
		}
	})

	t.Run("second start merges classes", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, `<html><body><div id="a" data-component="box"></div></body></html>`)
		act := mustStart(t, doc, WithClasses(rec.class("box")))

		_ = doc.InsertHTML(byID(t, doc, "a"), BeforeEnd, `<div id="t" data-component="tab"></div>`)
		loop.Flush()
		if doc.Component(byID(t, doc, "t")) != nil {
			t.Fatal("unregistered position should stay unbound")
		}

		mustStart(t, doc, WithClasses(rec.class("tab")))
		if !act.Registry().Has("box") || !act.Registry().Has("tab") {
			t.Errorf("registry should hold both classes, has %v", act.Registry().Names())
		}
		tab := componentAt(t, doc, "t")
		if got := ids([]Component{tab.Parent()}); !cmp.Equal(got, []string{"a"}) {
			t.Errorf("tab parent = %v", got)
		}
	})
}

func TestWatch_Removal(t *testing.T) {
	t.Run("removing a subtree disconnects deepest first", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, `<html><body><div id="A" data-component="box"><div id="B" data-component="box"><div id="C" data-component="item"></div></div></div></body></html>`)
		mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		a := componentAt(t, doc, "A")
		b := componentAt(t, doc, "B")
		c := componentAt(t, doc, "C")
		if got := ids(a.Children()); !cmp.Equal(got, []string{"B"}) {
			t.Errorf("A children = %v, want [B]", got)
		}
		if got := ids(b.Children()); !cmp.Equal(got, []string{"C"}) {
			t.Errorf("B children = %v, want [C]", got)
		}
		rec.reset()

		doc.Remove(b.Element())
		loop.Flush()

		if diff := cmp.Diff([]string{"disconnect C", "disconnect B"}, rec.events); diff != "" {
			t.Errorf("disconnect order mismatch (-want +got):\n%s", diff)
		}
		if len(a.Children()) != 0 {
			t.Errorf("A should have no children, got %v", ids(a.Children()))
		}
		if b.Live() || c.Live() {
			t.Error("removed instances should be released")
		}
	})

	t.Run("disconnect runs exactly once", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup)
		mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		c := componentAt(t, doc, "C")
		_ = c.Close()
		rec.reset()

		b := byID(t, doc, "B")
		doc.Remove(b)
		loop.Flush()
		doc.Remove(b)
		loop.Flush()

		if diff := cmp.Diff([]string{"disconnect B"}, rec.events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cleanup errors reach the loop", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup, WithErrorHistory(4), WithLogger(testlog.Start(t)))
		var uncaught []error
		loop.OnError(func(err error) { uncaught = append(uncaught, err) })
		act := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		errBoom := errors.New("boom")
		componentAt(t, doc, "E").RegisterCleanup(func() error { return errBoom })

		doc.Remove(byID(t, doc, "E"))
		loop.Flush()

		if len(uncaught) != 1 || !errors.Is(uncaught[0], errBoom) {
			t.Fatalf("expected cleanup error on the loop, got %v", uncaught)
		}
		if errs := act.Errors(); len(errs) != 1 || !IsLifecycleError(errs[0]) {
			t.Errorf("error history = %v", errs)
		}
		if doc.Component(byID(t, doc, "D")) == nil {
			t.Error("siblings must be untouched")
		}
	})

	t.Run("remove and re-add in one batch rebinds", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup)
		mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		d := componentAt(t, doc, "D")
		rec.reset()

		el := d.Element()
		doc.Remove(el)
		_ = doc.AppendChild(byID(t, doc, "E"), el)
		loop.Flush()

		if diff := cmp.Diff([]string{"disconnect D", "connect D"}, rec.events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
		if d.Live() {
			t.Error("old instance should be released")
		}
		fresh := componentAt(t, doc, "D")
		if fresh == d {
			t.Error("expected a fresh instance")
		}
		if got := ids([]Component{fresh.Parent()}); !cmp.Equal(got, []string{"E"}) {
			t.Errorf("D parent = %v, want E", got)
		}
	})

	t.Run("re-adding in a later batch creates a fresh instance", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup)
		mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		d := componentAt(t, doc, "D")
		el := d.Element()
		parent := el.Parent
		rec.reset()

		doc.Remove(el)
		loop.Flush()
		_ = doc.AppendChild(parent, el)
		loop.Flush()

		if diff := cmp.Diff([]string{"disconnect D", "connect D"}, rec.events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
		fresh := componentAt(t, doc, "D")
		if fresh == d || fresh.ID() == d.ID() {
			t.Error("expected a new instance with a new id")
		}
	})
}

func TestWatch_Additions(t *testing.T) {
	t.Run("inserted subtree links to existing parent", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup)
		var parentOfQ []string
		item := NewClass("item", func() Component {
			return &recorded{rec: rec, onConnect: func(c *recorded) {
				if c.label() == "Q" {
					parentOfQ = ids([]Component{c.Parent()})
				}
			}}
		})
		mustStart(t, doc, WithClasses(rec.class("box"), item))
		rec.reset()

		_ = doc.InsertHTML(byID(t, doc, "E"), BeforeEnd,
			`<div id="P" data-component="box"><div id="Q" data-component="item"></div></div>`)
		loop.Flush()

		if diff := cmp.Diff([]string{"connect P", "connect Q"}, rec.events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"P"}, parentOfQ); diff != "" {
			t.Errorf("Q parent at connect mismatch (-want +got):\n%s", diff)
		}
		p := componentAt(t, doc, "P")
		if got := ids([]Component{p.Parent()}); !cmp.Equal(got, []string{"E"}) {
			t.Errorf("P parent = %v, want E", got)
		}
	})

	t.Run("move within the root rebinds the subtree", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup)
		mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		b := componentAt(t, doc, "B")
		c := componentAt(t, doc, "C")
		e := componentAt(t, doc, "E")
		rec.reset()

		_ = doc.AppendChild(e.Element(), b.Element())
		loop.Flush()

		want := []string{"disconnect C", "disconnect B", "connect B", "connect C"}
		if diff := cmp.Diff(want, rec.events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
		if b.Live() || c.Live() {
			t.Error("moved instances should be released")
		}
		nb := componentAt(t, doc, "B")
		nc := componentAt(t, doc, "C")
		if nb.Parent() != e {
			t.Errorf("B parent = %v, want E", ids([]Component{nb.Parent()}))
		}
		if nc.Parent() != nb {
			t.Error("C should hang under the new B")
		}
		if diff := cmp.Diff([]string{"B"}, ids(e.Children())); diff != "" {
			t.Errorf("E children mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("add classes adopts bound descendants", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, `<html><body><div id="I" data-component="item"></div></body></html>`)
		act := mustStart(t, doc, WithClasses(rec.class("item")))

		_ = doc.InsertHTML(byID(t, doc, "I"), AfterEnd,
			`<div id="T" data-component="tab"><div id="J" data-component="item"></div></div>`)
		loop.Flush()
		j := componentAt(t, doc, "J")
		if j.Parent() != nil {
			t.Fatal("J should be a root while T is unbound")
		}
		rec.reset()

		created, err := act.AddClasses(rec.class("tab"))
		if err != nil {
			t.Fatalf("AddClasses failed: %v", err)
		}
		if diff := cmp.Diff([]string{"T"}, ids(created)); diff != "" {
			t.Errorf("created mismatch (-want +got):\n%s", diff)
		}
		if got := ids([]Component{j.Parent()}); !cmp.Equal(got, []string{"T"}) {
			t.Errorf("J parent = %v, want T", got)
		}
		if diff := cmp.Diff([]string{"I", "T"}, ids(act.Current())); diff != "" {
			t.Errorf("roots mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"connect T"}, rec.events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("add classes rejects invalid classes", func(t *testing.T) {
		doc, _ := parse(t, `<html><body><div data-component="item"></div></body></html>`)
		act := mustStart(t, doc, WithClasses(plainClass("item")))
		if _, err := act.AddClasses(Class{Name: " ", New: func() Component { return &plain{} }}); !errors.Is(err, ErrInvalidClass) {
			t.Errorf("expected ErrInvalidClass, got %v", err)
		}
	})

	t.Run("connect errors in a batch reach the loop", func(t *testing.T) {
		rec := &recorder{}
		doc, loop := parse(t, nestedMarkup, WithErrorHistory(2))
		var uncaught []error
		loop.OnError(func(err error) { uncaught = append(uncaught, err) })
		act := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
		act.Registry().Add(NewClass("bad", func() Component {
			return &recorded{rec: rec, connectErr: errors.New("nope")}
		}))

		_ = doc.InsertHTML(byID(t, doc, "E"), BeforeEnd, `<div data-component="bad"></div><div id="ok" data-component="item"></div>`)
		loop.Flush()

		if len(uncaught) != 1 || !IsLifecycleError(uncaught[0]) {
			t.Fatalf("expected one lifecycle error, got %v", uncaught)
		}
		if doc.Component(byID(t, doc, "ok")) == nil {
			t.Error("later instances still bind")
		}
		if len(act.Errors()) != 1 {
			t.Errorf("error history = %v", act.Errors())
		}
	})
}

func TestWatch_Roots(t *testing.T) {
	const markup = `<html><body>
<div id="outer" data-component="box"><div id="inner"><div id="X" data-component="item"></div></div></div>
</body></html>`

	rec := &recorder{}
	doc, _ := parse(t, markup)
	inner := byID(t, doc, "inner")
	act := mustStart(t, doc, WithRoot(inner), WithClasses(rec.class("item")))
	x := componentAt(t, doc, "X")
	if x.Parent() != nil {
		t.Error("X must not look above its root")
	}
	if act.Root() != inner {
		t.Error("Root should be the given element")
	}

	outerAct := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
	outer := componentAt(t, doc, "outer")
	if len(outer.Children()) != 0 {
		t.Errorf("outer must not adopt instances of another root, got %v", ids(outer.Children()))
	}
	if doc.Component(byID(t, doc, "X")) != x {
		t.Error("X must not be rebound")
	}
	if diff := cmp.Diff([]string{"outer"}, nodeIDs(outerAct.Forest())); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch_DetachedRoot(t *testing.T) {
	rec := &recorder{}
	doc, loop := parse(t, `<html><body><div id="root"><div id="a" data-component="item"></div></div></body></html>`)
	root := byID(t, doc, "root")
	mustStart(t, doc, WithRoot(root), WithClasses(rec.class("item")))
	a := componentAt(t, doc, "a")
	rec.reset()

	doc.Remove(root)
	_ = doc.InsertHTML(root, BeforeEnd, `<div id="b" data-component="item"></div>`)
	doc.Remove(a.Element())
	loop.Flush()

	want := []string{"disconnect a", "connect b"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch_State(t *testing.T) {
	rec := &recorder{}
	doc, loop := parse(t, nestedMarkup)
	act := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
	if act.State() != StateIdle {
		t.Fatalf("state = %v, want idle", act.State())
	}

	doc.Remove(byID(t, doc, "D"))
	if act.State() != StateCollecting {
		t.Errorf("state = %v, want collecting", act.State())
	}
	loop.Flush()
	if act.State() != StateIdle {
		t.Errorf("state = %v, want idle", act.State())
	}

	act.Stop()
	act.Stop()
	if act.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", act.State())
	}
	rec.reset()
	e := componentAt(t, doc, "E")
	doc.Remove(e.Element())
	_ = doc.InsertHTML(byID(t, doc, "A"), BeforeEnd, `<div data-component="item"></div>`)
	loop.Flush()
	if len(rec.events) != 0 {
		t.Errorf("stopped watch must not react, got %v", rec.events)
	}
	if !e.Live() {
		t.Error("instances stay bound after stop")
	}

	// a stopped root can be started again
	again := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
	if again.w == act.w {
		t.Error("expected a fresh synchronizer")
	}
}

func TestWatch_Restart(t *testing.T) {
	rec := &recorder{}
	doc, loop := parse(t, nestedMarkup)
	act := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
	a := componentAt(t, doc, "A")
	e := componentAt(t, doc, "E")
	act.Stop()
	rec.reset()

	again := mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
	if len(rec.events) != 0 {
		t.Errorf("live instances must not be rebound, got %v", rec.events)
	}
	if diff := cmp.Diff([]string{"A"}, ids(again.Roots)); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A"}, ids(again.Current())); diff != "" {
		t.Errorf("current mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B", "D", "E"}, ids(a.Children())); diff != "" {
		t.Errorf("A children mismatch (-want +got):\n%s", diff)
	}

	_ = doc.InsertHTML(e.Element(), BeforeEnd, `<div id="F" data-component="item"></div>`)
	loop.Flush()
	f := componentAt(t, doc, "F")
	if f.Parent() != e {
		t.Errorf("F parent = %v, want E", ids([]Component{f.Parent()}))
	}
	if diff := cmp.Diff([]string{"F"}, ids(e.Children())); diff != "" {
		t.Errorf("E children mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch_NestedRoot(t *testing.T) {
	rec := &recorder{}
	doc, loop := parse(t, nestedMarkup)
	mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))
	a := componentAt(t, doc, "A")
	b := componentAt(t, doc, "B")
	c := componentAt(t, doc, "C")
	section := b.Element().Parent
	rec.reset()

	inner := mustStart(t, doc, WithRoot(section), WithClasses(rec.class("box"), rec.class("item")))
	if len(rec.events) != 0 {
		t.Errorf("live instances must not be rebound, got %v", rec.events)
	}
	if diff := cmp.Diff([]string{"B"}, ids(inner.Roots)); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}
	if b.Parent() != nil || c.Parent() != b {
		t.Error("B should be a root of the inner forest with C under it")
	}
	if diff := cmp.Diff([]string{"D", "E"}, ids(a.Children())); diff != "" {
		t.Errorf("A children mismatch (-want +got):\n%s", diff)
	}

	_ = doc.InsertHTML(section, BeforeEnd, `<div id="G" data-component="item"></div>`)
	loop.Flush()
	if diff := cmp.Diff([]string{"connect G"}, rec.events); diff != "" {
		t.Errorf("G must be bound once (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B", "G"}, ids(inner.Current())); diff != "" {
		t.Errorf("inner roots mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"D", "E"}, ids(a.Children())); diff != "" {
		t.Errorf("A must not adopt G (-want +got):\n%s", diff)
	}
}

type countingMetrics struct {
	NoOpMetricsProvider
	connects    map[string]int
	disconnects map[string]int
	applied     int
	failed      int
	received    int
	states      []string
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{connects: map[string]int{}, disconnects: map[string]int{}}
}

func (m *countingMetrics) OnConnect(name string)                    { m.connects[name]++ }
func (m *countingMetrics) OnDisconnect(name string)                 { m.disconnects[name]++ }
func (m *countingMetrics) OnBatchApplied(_, _ int, _ time.Duration) { m.applied++ }
func (m *countingMetrics) OnBatchFailed(_ time.Duration)            { m.failed++ }
func (m *countingMetrics) OnChangeReceived()                        { m.received++ }
func (m *countingMetrics) OnStateChange(_, to State)                { m.states = append(m.states, to.String()) }

func TestWatch_Metrics(t *testing.T) {
	m := newCountingMetrics()
	rec := &recorder{}
	doc, loop := parse(t, nestedMarkup, WithMetrics(m), WithLogger(testlog.Start(t)))
	mustStart(t, doc, WithClasses(rec.class("box"), rec.class("item")))

	doc.Remove(byID(t, doc, "B"))
	loop.Flush()

	if diff := cmp.Diff(map[string]int{"box": 3, "item": 2}, m.connects); diff != "" {
		t.Errorf("connects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"box": 1, "item": 1}, m.disconnects); diff != "" {
		t.Errorf("disconnects mismatch (-want +got):\n%s", diff)
	}
	if m.applied != 1 || m.failed != 0 || m.received != 1 {
		t.Errorf("applied=%d failed=%d received=%d", m.applied, m.failed, m.received)
	}
	want := []string{"collecting", "applying", "idle"}
	if diff := cmp.Diff(want, m.states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}
