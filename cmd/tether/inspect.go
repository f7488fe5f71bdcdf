package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zoobzio/tether"
	"github.com/zoobzio/tether/inspect"
	"github.com/zoobzio/tether/internal/config"
	"github.com/zoobzio/tether/internal/logging"
	"github.com/zoobzio/tether/pkg/file"
	"golang.org/x/net/html"
)

type inspectOptions struct {
	format     string
	watch      bool
	configPath string
}

func newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the component forest of an HTML file",
		Long: `Binds a stub component to every discriminator found in FILE and prints
the resulting forest. With --watch the body is re-rendered on every change
to FILE and the forest is printed again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runInspect(ctx, cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json, yaml, toml or msgpack")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-print on file changes")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "settings file (yaml, toml or json)")
	return cmd
}

// stub is bound to every discriminator during inspection.
type stub struct {
	tether.Base
}

func stubs(names []string) []tether.Class {
	classes := make([]tether.Class, 0, len(names))
	for _, name := range names {
		classes = append(classes, tether.NewClass(name, func() tether.Component { return &stub{} }))
	}
	return classes
}

// discriminators returns the distinct marker values under root, sorted.
func discriminators(root *html.Node, markerAttr string) ([]string, error) {
	positions, err := tether.Scan(root, markerAttr)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, p := range positions {
		for _, a := range p.Attr {
			if a.Key == markerAttr {
				seen[a.Val] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func runInspect(ctx context.Context, cmd *cobra.Command, path string, opts *inspectOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	watch := opts.watch || cfg.Watch
	logger := logging.Runtime(cmd.ErrOrStderr())

	docOpts := cfg.Options(logger)
	if watch {
		// print after each batch, not after a debounce window
		docOpts = append(docOpts, tether.WithDebounce(0))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	loop := tether.NewLoop().Logger(logger)
	if !watch {
		loop.SyncMode()
	}
	doc, err := tether.Parse(bytes.NewReader(data), loop, docOpts...)
	if err != nil {
		return err
	}

	names, err := discriminators(doc.Body(), doc.MarkerAttr())
	if err != nil {
		return err
	}
	act, err := tether.Start(doc, tether.WithClasses(stubs(names)...))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := inspect.Encode(out, inspect.Capture(doc, act), opts.format); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return watchFile(ctx, out, path, doc, act, opts.format, logger)
}

// watchFile re-renders the body from path on every change and reprints the
// forest once the resulting batch has been applied.
func watchFile(ctx context.Context, out io.Writer, path string, doc *tether.Document, act *tether.Activation, format string, logger zerolog.Logger) error {
	ch, err := file.New(path).Watch(ctx)
	if err != nil {
		return err
	}
	loopErr := make(chan error, 1)
	go func() { loopErr <- doc.Loop().Run(ctx) }()

	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-loopErr:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			if first {
				// the initial contents were printed already
				first = false
				continue
			}
			markup := raw
			doc.Loop().Post(func() error {
				return reload(doc, act, markup, func() error {
					fmt.Fprintln(out)
					return inspect.Encode(out, inspect.Capture(doc, act), format)
				})
			})
			logger.Info().Str("file", path).Msg("reloaded")
		}
	}
}

// reload re-renders the body and then posts report. The body mutation posts
// its batch first, so report sees the forest with the batch applied. The
// document must use a zero debounce.
func reload(doc *tether.Document, act *tether.Activation, markup []byte, report func() error) error {
	if err := rerender(doc, act, markup); err != nil {
		return err
	}
	doc.Loop().Post(report)
	return nil
}

// rerender swaps the body children for those of a freshly parsed document,
// registering stubs for any new discriminators first.
func rerender(doc *tether.Document, act *tether.Activation, markup []byte) error {
	fresh, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	body := findBody(fresh)
	if body == nil {
		return fmt.Errorf("parse: no body")
	}
	names, err := discriminators(body, doc.MarkerAttr())
	if err != nil {
		return err
	}
	var missing []string
	for _, name := range names {
		if !act.Registry().Has(name) {
			missing = append(missing, name)
		}
	}
	if _, err := act.AddClasses(stubs(missing)...); err != nil {
		return err
	}

	var children []*html.Node
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		body.RemoveChild(c)
		children = append(children, c)
		c = next
	}
	return doc.ReplaceChildren(doc.Body(), children...)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
