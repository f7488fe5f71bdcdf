// Package inspect captures the bound component forest of a document for
// tooling.
package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/zoobzio/tether"
)

// Entry is one bound instance and its children.
type Entry struct {
	Name     string  `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	ID       uint64  `json:"id" yaml:"id" toml:"id" msgpack:"id"`
	Tag      string  `json:"tag" yaml:"tag" toml:"tag" msgpack:"tag"`
	Children []Entry `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty" msgpack:"children,omitempty"`
}

// Snapshot is the forest of one watched root.
type Snapshot struct {
	Root       string  `json:"root" yaml:"root" toml:"root" msgpack:"root"`
	Components []Entry `json:"components" yaml:"components" toml:"components" msgpack:"components"`
}

// Capture records the current forest of an activation.
func Capture(doc *tether.Document, act *tether.Activation) Snapshot {
	root := act.Root()
	label := root.Data
	if id, ok := doc.Attr(root, "id"); ok {
		label += "#" + id
	}
	return Snapshot{Root: label, Components: Entries(doc, act.Forest())}
}

// Entries converts mirror nodes into entries, recursively.
func Entries(doc *tether.Document, nodes []*tether.Node) []Entry {
	out := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		id, _ := doc.ComponentID(n.Element())
		out = append(out, Entry{
			Name:     n.Name(),
			ID:       id,
			Tag:      n.Element().Data,
			Children: Entries(doc, n.Children()),
		})
	}
	return out
}

// Count returns the number of entries in the snapshot.
func (s Snapshot) Count() int {
	return count(s.Components)
}

func count(entries []Entry) int {
	n := len(entries)
	for _, e := range entries {
		n += count(e.Children)
	}
	return n
}

// Encode writes the snapshot as format: text, json, yaml, toml or msgpack.
func Encode(w io.Writer, s Snapshot, format string) error {
	if format == "" || format == "text" {
		return Render(w, s)
	}
	codec, err := tether.CodecFor(format)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot (%s): %w", codec.ContentType(), err)
	}
	_, err = w.Write(data)
	return err
}

var (
	rootColor = color.New(color.Bold).SprintFunc()
	nameColor = color.New(color.FgCyan).SprintFunc()
	idColor   = color.New(color.FgHiBlack).SprintfFunc()
	tagColor  = color.RGB(196, 168, 128).SprintFunc()
)

// Render writes the snapshot as an indented tree. Colour follows
// color.NoColor.
func Render(w io.Writer, s Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", rootColor(s.Root), s.Count())
	renderEntries(&b, s.Components, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func renderEntries(b *strings.Builder, entries []Entry, indent string) {
	for i, e := range entries {
		branch, next := "├── ", "│   "
		if i == len(entries)-1 {
			branch, next = "└── ", "    "
		}
		fmt.Fprintf(b, "%s%s%s %s <%s>\n", indent, branch, nameColor(e.Name), idColor("#%d", e.ID), tagColor(e.Tag))
		renderEntries(b, e.Children, indent+next)
	}
}
