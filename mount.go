package tether

import (
	"context"
	"fmt"

	"golang.org/x/net/html"
)

// Mount renders every value emitted by source into target, replacing its
// children. Each render is posted to the document's loop, so active roots
// see it as one mutation batch. Mount returns once the source is watching;
// rendering stops when ctx is canceled or the source closes.
func Mount(ctx context.Context, doc *Document, target *html.Node, source Watcher) error {
	if target == nil {
		return fmt.Errorf("mount: nil target")
	}
	ch, err := source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("mount: failed to start watcher: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				markup := string(raw)
				doc.loop.Post(func() error {
					if err := doc.SetInnerHTML(target, markup); err != nil {
						return fmt.Errorf("mount %s: %w", describe(target), err)
					}
					doc.cfg.logger.Debug().Str("target", describe(target)).Int("bytes", len(markup)).Msg("markup mounted")
					return nil
				})
			}
		}
	}()
	return nil
}
