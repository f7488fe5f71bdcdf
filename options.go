package tether

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Default attribute names.
const (
	DefaultIDAttr  = "data-component-id"
	DefaultRefAttr = "data-ref"
)

// config holds configuration options for a Document.
type config struct {
	markerAttr   string
	idAttr       string
	refAttr      string
	debounce     time.Duration
	errorHistory int
	logger       zerolog.Logger
	metrics      MetricsProvider
}

func defaultConfig() *config {
	return &config{
		markerAttr: DefaultMarkerAttr,
		idAttr:     DefaultIDAttr,
		refAttr:    DefaultRefAttr,
		logger:     zerolog.Nop(),
		metrics:    NoOpMetricsProvider{},
	}
}

// Option configures a Document.
type Option func(*config)

// WithMarkerAttr sets the attribute that selects positions for binding.
func WithMarkerAttr(name string) Option {
	return func(c *config) {
		c.markerAttr = name
	}
}

// WithIDAttr sets the attribute mirroring component ids onto elements.
func WithIDAttr(name string) Option {
	return func(c *config) {
		c.idAttr = name
	}
}

// WithRefAttr sets the attribute naming reference descendants.
func WithRefAttr(name string) Option {
	return func(c *config) {
		c.refAttr = name
	}
}

// WithDebounce widens the collecting window of every observer. Records
// arriving within d of each other are delivered as one batch. Zero delivers
// on the next loop turn.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// WithErrorHistory keeps the last n asynchronous batch errors per watched
// root.
func WithErrorHistory(n int) Option {
	return func(c *config) {
		c.errorHistory = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics sets a metrics provider.
func WithMetrics(m MetricsProvider) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// startConfig holds the arguments of one activation call.
type startConfig struct {
	root    *html.Node
	classes []Class
}

// StartOption configures an activation call.
type StartOption func(*startConfig)

// WithRoot scopes activation to root. The default is the document body.
func WithRoot(root *html.Node) StartOption {
	return func(c *startConfig) {
		c.root = root
	}
}

// WithClasses registers classes for the activated root.
func WithClasses(classes ...Class) StartOption {
	return func(c *startConfig) {
		c.classes = append(c.classes, classes...)
	}
}
