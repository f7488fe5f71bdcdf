package tether

import (
	"fmt"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// DefaultMarkerAttr selects a position for binding. Its value is the
// discriminator name.
const DefaultMarkerAttr = "data-component"

// scanQuery selects marker-tagged elements under and including the context
// node, skipping script carriers and template contents.
func scanQuery(markerAttr string) string {
	return fmt.Sprintf("descendant-or-self::*[@%s][not(self::script)][not(ancestor::template)]", markerAttr)
}

// Scan returns the positions under and including root that carry markerAttr,
// in document order. Inert positions are excluded. Scan never mutates the
// tree and always reflects its current state.
func Scan(root *html.Node, markerAttr string) ([]*html.Node, error) {
	if root == nil {
		return nil, nil
	}
	if root.Type == html.ElementNode && inert(root) {
		return nil, nil
	}
	nodes, err := htmlquery.QueryAll(root, scanQuery(markerAttr))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", markerAttr, err)
	}
	return nodes, nil
}
