package tether

import (
	"fmt"

	"golang.org/x/net/html"
)

// Activation is the handle returned by Start for one watched root.
type Activation struct {
	// Roots holds the top-level instances at the time of the call.
	Roots []Component

	w *watch
}

// Start validates the root against the registered classes, binds every
// tagged position under it and begins observing it for mutations.
//
// The root defaults to the document body and must be attached to the
// document. Validation fails with a
// ConfigurationError when nothing is tagged, when a class is unusable, or
// when a tagged discriminator has no class; nothing is bound in that case.
//
// Starting a root that is already watched merges the classes into its
// registry and binds only the positions that are not bound yet; existing
// instances are not recreated. Connect errors are returned after every
// instance is bound and linked, alongside a usable Activation.
func Start(doc *Document, opts ...StartOption) (*Activation, error) {
	cfg := &startConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	root := cfg.root
	if root == nil {
		root = doc.Body()
	}
	if !contains(doc.root, root) {
		return nil, &ConfigurationError{Name: describe(root), Err: ErrDetached}
	}

	positions, err := Scan(root, doc.cfg.markerAttr)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	w, existing := doc.watches[root]
	var merged *Registry
	if existing {
		merged = w.registry.clone()
	} else {
		merged = NewRegistry()
	}
	merged.Add(cfg.classes...)

	classes := append(merged.Classes(), cfg.classes...)
	if err := Validate(positions, doc.cfg.markerAttr, classes); err != nil {
		doc.cfg.logger.Error().Err(err).Str("root", describe(root)).Msg("activation rejected")
		return nil, err
	}

	if existing {
		w.registry = merged
	} else {
		w = newWatch(doc, root, merged)
		w.start()
	}

	_, err = w.bind(w.candidates([]*html.Node{root}))
	return &Activation{Roots: w.roots(), w: w}, err
}

// AddClasses registers further classes and binds the positions they cover.
// Already bound positions are left alone.
func (a *Activation) AddClasses(classes ...Class) ([]Component, error) {
	return a.w.register(classes)
}

// Stop ends observation of the root. Bound instances stay bound and keep
// their cleanup actions.
func (a *Activation) Stop() {
	a.w.stop()
}

// State returns the synchronizer state.
func (a *Activation) State() State {
	return a.w.State()
}

// Current returns the top-level instances now.
func (a *Activation) Current() []Component {
	return a.w.roots()
}

// Forest returns the top-level mirror nodes now.
func (a *Activation) Forest() []*Node {
	return a.w.forest.Roots()
}

// Registry returns the registry of the watched root.
func (a *Activation) Registry() *Registry {
	return a.w.registry
}

// Root returns the watched root.
func (a *Activation) Root() *html.Node {
	return a.w.root
}

// Errors returns the recent asynchronous batch errors, oldest first. It is
// empty unless WithErrorHistory was set on the document.
func (a *Activation) Errors() []error {
	return a.w.errors.all()
}
