/*
Package tether binds component instances to tagged positions of a live HTML
document and keeps them in step as the document changes.

A position is an element carrying the marker attribute (data-component by
default). Its value names a Class, and each class produces instances that
embed Base:

	type Clock struct {
		tether.Base
	}

	func (c *Clock) Connect() error {
		c.Interval(c.tick, time.Second)
		return nil
	}

	loop := tether.NewLoop()
	doc, _ := tether.ParseString(markup, loop)
	act, err := tether.Start(doc, tether.WithClasses(
		tether.NewClass("clock", func() tether.Component { return &Clock{} }),
	))
	go loop.Run(ctx)

# Tree

Bound instances form a forest that mirrors the nesting of their positions;
untagged elements in between are transparent. Parent, Children and Siblings
on Base navigate it.

# Synchronization

Every root passed to Start is observed. Child-list mutations made through
the Document are coalesced into batches and applied on the loop: removed
subtrees release their instances deepest first, and added subtrees bind the
registered positions they contain. A batch is bound in three phases so that
no Connect hook sees a partially linked tree.

# Lifecycle

Close on Base runs the Disconnect hook, drains the cleanup actions in
registration order and unlinks the instance. It runs at most once. Listeners
added with On and timers from Timeout and Interval are cleaned up
automatically.

# Testing

A sync-mode Loop runs tasks only when Flush is called:

	loop := tether.NewLoop().SyncMode()
	doc, _ := tether.ParseString(markup, loop)
	act, _ := tether.Start(doc, tether.WithClasses(classes...))
	doc.Remove(el)
	loop.Flush()
*/
package tether
