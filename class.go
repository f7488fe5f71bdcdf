package tether

import (
	"sort"

	"github.com/a-h/templ"
)

// TemplateFunc renders one payload item into markup. It is used by the
// script expansion helper in package expand.
type TemplateFunc func(data map[string]any) templ.Component

// Class describes a kind of component: the discriminator it binds to and a
// factory producing fresh instances.
//
//	tether.NewClass("slideshow", func() tether.Component { return &Slideshow{} })
type Class struct {
	// Name is matched against the marker attribute value.
	Name string `validate:"required"`

	// New returns a fresh instance embedding *tether.Base.
	New func() Component `validate:"required"`

	// Template optionally renders payload items for script expansion.
	Template TemplateFunc
}

// NewClass builds a Class from a name and factory.
func NewClass(name string, factory func() Component) Class {
	return Class{Name: name, New: factory}
}

// WithTemplate returns a copy of the class that carries a template.
func (c Class) WithTemplate(fn TemplateFunc) Class {
	c.Template = fn
	return c
}

// Registry maps discriminator names to classes for one watched root. It is
// append-only; registering a name again replaces the earlier class.
type Registry struct {
	classes map[string]Class
}

// NewRegistry creates a registry holding the given classes.
func NewRegistry(classes ...Class) *Registry {
	r := &Registry{classes: make(map[string]Class, len(classes))}
	r.Add(classes...)
	return r
}

// Add registers classes. Validation is the caller's concern.
func (r *Registry) Add(classes ...Class) {
	for _, c := range classes {
		r.classes[c.Name] = c
	}
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.classes[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classes returns the registered classes ordered by name.
func (r *Registry) Classes() []Class {
	names := r.Names()
	out := make([]Class, 0, len(names))
	for _, name := range names {
		out = append(out, r.classes[name])
	}
	return out
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.classes)
}

// clone copies the registry so a merge can be validated before it is
// committed.
func (r *Registry) clone() *Registry {
	c := &Registry{classes: make(map[string]Class, len(r.classes))}
	for k, v := range r.classes {
		c.classes[k] = v
	}
	return c
}
