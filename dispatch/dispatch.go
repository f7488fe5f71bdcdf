// Package dispatch runs page controllers selected by attributes on the
// document body:
//
//	<body data-namespace="admin/users" data-controller="pages" data-action="index">
//
// The namespace controller is the registry entry at the namespace path. The
// controller is looked up under the namespace first and at the top level
// otherwise. Both are initialized and the action method is called by name.
package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/zoobzio/tether"
)

// Body attributes.
const (
	NamespaceAttr  = "data-namespace"
	ControllerAttr = "data-controller"
	ActionAttr     = "data-action"
)

// Initializer is implemented by controllers with setup work.
type Initializer interface {
	Initialize() error
}

// Deinitializer is implemented by controllers with teardown work.
type Deinitializer interface {
	Deinitialize() error
}

// NamespaceSetter receives the namespace controller before Initialize.
type NamespaceSetter interface {
	SetNamespace(ns any)
}

// ControllerSetter receives the page controller before Initialize.
type ControllerSetter interface {
	SetController(c any)
}

type entry struct {
	value    any
	factory  func() any
	children map[string]*entry
}

func (e *entry) resolve() any {
	if e == nil {
		return nil
	}
	if e.factory != nil {
		return e.factory()
	}
	return e.value
}

// Registry is a tree of controllers addressed by slash paths.
type Registry struct {
	root *entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{root: &entry{}}
}

// Singleton registers v at path. The same value is returned on every
// dispatch.
func (r *Registry) Singleton(path string, v any) *Registry {
	r.node(path).value = v
	return r
}

// Factory registers fn at path. It is called on every dispatch.
func (r *Registry) Factory(path string, fn func() any) *Registry {
	r.node(path).factory = fn
	return r
}

func (r *Registry) node(path string) *entry {
	cur := r.root
	for _, seg := range segments(path) {
		if cur.children == nil {
			cur.children = make(map[string]*entry)
		}
		next, ok := cur.children[seg]
		if !ok {
			next = &entry{}
			cur.children[seg] = next
		}
		cur = next
	}
	return cur
}

func (r *Registry) lookup(path []string) *entry {
	if len(path) == 0 {
		return nil
	}
	cur := r.root
	for _, seg := range path {
		cur = cur.children[seg]
		if cur == nil {
			return nil
		}
	}
	return cur
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Result describes the controllers active after a dispatch.
type Result struct {
	Namespace  any
	Controller any
	Action     string
}

// Dispatcher remembers the active controllers between dispatches so the
// previous page can be torn down.
type Dispatcher struct {
	registry   *Registry
	logger     zerolog.Logger
	namespace  any
	controller any
}

// New creates a dispatcher over r.
func New(r *Registry) *Dispatcher {
	return &Dispatcher{registry: r, logger: zerolog.Nop()}
}

// Logger sets the logger.
func (d *Dispatcher) Logger(l zerolog.Logger) *Dispatcher {
	d.logger = l
	return d
}

// Dispatch deinitializes the previous controller and namespace controller,
// then resolves, links and initializes the ones named by the body of doc and
// calls the action.
func (d *Dispatcher) Dispatch(doc *tether.Document) (Result, error) {
	body := doc.Body()
	nsAttr, _ := doc.Attr(body, NamespaceAttr)
	name, _ := doc.Attr(body, ControllerAttr)
	action, _ := doc.Attr(body, ActionAttr)

	var errs []error
	if err := d.teardown(); err != nil {
		errs = append(errs, err)
	}

	nsPath := segments(nsAttr)
	d.namespace = d.registry.lookup(nsPath).resolve()

	// a resolved namespace scopes the controller lookup with no fallback
	ctrlPath := segments(name)
	if d.namespace != nil {
		ctrlPath = append(nsPath, name)
	}
	d.controller = d.registry.lookup(ctrlPath).resolve()

	if d.namespace != nil {
		if s, ok := d.namespace.(ControllerSetter); ok {
			s.SetController(d.controller)
		}
		if i, ok := d.namespace.(Initializer); ok {
			if err := i.Initialize(); err != nil {
				errs = append(errs, fmt.Errorf("initialize namespace %s: %w", nsAttr, err))
			}
		}
	}
	if d.controller != nil {
		if s, ok := d.controller.(NamespaceSetter); ok {
			s.SetNamespace(d.namespace)
		}
		if i, ok := d.controller.(Initializer); ok {
			if err := i.Initialize(); err != nil {
				errs = append(errs, fmt.Errorf("initialize controller %s: %w", name, err))
			}
		}
		if action != "" {
			if err := call(d.controller, action); err != nil {
				errs = append(errs, fmt.Errorf("action %s.%s: %w", name, action, err))
			}
		}
	}

	d.logger.Debug().Str("namespace", nsAttr).Str("controller", name).Str("action", action).Msg("dispatched")
	return Result{Namespace: d.namespace, Controller: d.controller, Action: action}, errors.Join(errs...)
}

// Teardown deinitializes the active controllers.
func (d *Dispatcher) Teardown() error {
	return d.teardown()
}

func (d *Dispatcher) teardown() error {
	var errs []error
	if d.controller != nil {
		if di, ok := d.controller.(Deinitializer); ok {
			if err := di.Deinitialize(); err != nil {
				errs = append(errs, fmt.Errorf("deinitialize controller: %w", err))
			}
		}
		d.controller = nil
	}
	if d.namespace != nil {
		if di, ok := d.namespace.(Deinitializer); ok {
			if err := di.Deinitialize(); err != nil {
				errs = append(errs, fmt.Errorf("deinitialize namespace: %w", err))
			}
		}
		d.namespace = nil
	}
	return errors.Join(errs...)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// call invokes the exported method matching action. Missing methods are
// ignored. Methods must take no arguments and return nothing or an error.
func call(target any, action string) error {
	r, size := utf8.DecodeRuneInString(action)
	method := reflect.ValueOf(target).MethodByName(string(unicode.ToUpper(r)) + action[size:])
	if !method.IsValid() {
		return nil
	}
	t := method.Type()
	if t.NumIn() != 0 || t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType) {
		return fmt.Errorf("method has signature %s, want func() or func() error", t)
	}
	out := method.Call(nil)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
