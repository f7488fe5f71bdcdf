// Package expand renders data carried in script elements into markup.
//
// A carrier names a class, a target element and a payload:
//
//	<script type="application/json" data-component="slide" data-target="slides">
//	  [{"title": "One"}, {"title": "Two"}]
//	</script>
//
// Every payload item is rendered with the class template and the result is
// inserted at the target. Inserted markup goes through the document's
// mutation API, so watched roots bind whatever it contains.
package expand

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/zoobzio/tether"
	"golang.org/x/net/html"
)

// Carrier attributes.
const (
	TargetAttr    = "data-target"
	PositionAttr  = "data-position"
	ProcessedAttr = "data-script-processed"
)

// ErrTargetNotFound is returned when a carrier names a missing target.
var ErrTargetNotFound = errors.New("expand: target not found")

// Expander processes carriers under one root.
type Expander struct {
	doc      *tether.Document
	root     *html.Node
	registry *tether.Registry
	observer *tether.Observer
}

// Observe expands the carriers already under root and then every carrier
// added later. Carriers whose class is unknown or has no template are left
// for AddClasses.
func Observe(doc *tether.Document, root *html.Node, classes ...tether.Class) (*Expander, error) {
	if root == nil {
		root = doc.Body()
	}
	for _, c := range classes {
		if err := tether.ValidateClass(c); err != nil {
			return nil, err
		}
	}
	e := &Expander{doc: doc, root: root, registry: tether.NewRegistry(classes...)}
	e.observer = doc.Observe(root, e.onRecords)
	if err := e.process(root); err != nil {
		return e, err
	}
	return e, nil
}

// AddClasses registers classes and expands the carriers they cover.
func (e *Expander) AddClasses(classes ...tether.Class) error {
	for _, c := range classes {
		if err := tether.ValidateClass(c); err != nil {
			return err
		}
	}
	e.registry.Add(classes...)
	return e.process(e.root)
}

// Disconnect stops observing the root.
func (e *Expander) Disconnect() {
	e.observer.Disconnect()
}

func (e *Expander) onRecords(records []tether.MutationRecord) error {
	var errs []error
	for _, rec := range records {
		for _, n := range rec.Added {
			if n.Type != html.ElementNode || n.Parent == nil {
				continue
			}
			if err := e.process(n); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Expander) carriers(under *html.Node) []*html.Node {
	attrName := e.doc.MarkerAttr()
	expr := fmt.Sprintf("descendant-or-self::script[@%s][not(@%s)]", attrName, ProcessedAttr)
	return htmlquery.Find(under, expr)
}

func (e *Expander) process(under *html.Node) error {
	var errs []error
	for _, script := range e.carriers(under) {
		if err := e.expand(script); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// expand renders one carrier. A carrier without a usable class is skipped
// without being marked.
func (e *Expander) expand(script *html.Node) error {
	name, _ := e.doc.Attr(script, e.doc.MarkerAttr())
	class, ok := e.registry.Lookup(name)
	if !ok || class.Template == nil {
		return nil
	}

	targetID, _ := e.doc.Attr(script, TargetAttr)
	target := e.doc.GetElementByID(targetID)
	if target == nil {
		return fmt.Errorf("%w: %q for %s", ErrTargetNotFound, targetID, name)
	}
	position, ok := e.doc.Attr(script, PositionAttr)
	if !ok || position == "" {
		position = tether.BeforeEnd
	}

	items, err := decode(script, e.doc)
	if err != nil {
		return fmt.Errorf("expand %s: %w", name, err)
	}

	var buf bytes.Buffer
	for _, item := range items {
		if err := class.Template(item).Render(context.Background(), &buf); err != nil {
			return fmt.Errorf("expand %s: render: %w", name, err)
		}
	}

	if err := e.doc.InsertHTML(target, position, buf.String()); err != nil {
		return fmt.Errorf("expand %s: %w", name, err)
	}
	// records from the insertion are delivered later and find it marked
	e.doc.SetAttr(script, ProcessedAttr, "")
	return nil
}

// decode reads the payload array of a carrier with the codec matching its
// type attribute. Binary formats are base64 encoded in markup.
func decode(script *html.Node, doc *tether.Document) ([]map[string]any, error) {
	typ, _ := doc.Attr(script, "type")
	codec, err := tether.CodecFor(typ)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for c := script.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	raw := []byte(strings.TrimSpace(text.String()))
	if len(raw) == 0 {
		return nil, nil
	}
	if _, binary := codec.(tether.MsgpackCodec); binary {
		raw, err = base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decode base64 payload: %w", err)
		}
	}

	var items []map[string]any
	if err := codec.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode payload (%s): %w", codec.ContentType(), err)
	}
	return items, nil
}
