// Package config loads document settings from YAML, TOML or JSON files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zoobzio/tether"
	"github.com/zoobzio/tether/internal/logging"
)

// Duration is a time.Duration read from strings such as "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds the settings applied to a document.
type Config struct {
	MarkerAttr   string   `json:"marker_attr" yaml:"marker_attr" toml:"marker_attr" validate:"required,excludesall= "`
	IDAttr       string   `json:"id_attr" yaml:"id_attr" toml:"id_attr" validate:"required,excludesall= "`
	RefAttr      string   `json:"ref_attr" yaml:"ref_attr" toml:"ref_attr" validate:"required,excludesall= "`
	Debounce     Duration `json:"debounce" yaml:"debounce" toml:"debounce" validate:"gte=0"`
	ErrorHistory int      `json:"error_history" yaml:"error_history" toml:"error_history" validate:"gte=0,lte=1024"`
	LogLevel     string   `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error disabled off none"`
	Watch        bool     `json:"watch" yaml:"watch" toml:"watch"`
}

var validate = validator.New()

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MarkerAttr: tether.DefaultMarkerAttr,
		IDAttr:     tether.DefaultIDAttr,
		RefAttr:    tether.DefaultRefAttr,
		LogLevel:   "info",
	}
}

// Load reads path, picking the codec from its extension. Unset fields keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	codec, err := tether.CodecFor(path)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return Decode(data, codec)
}

// Decode parses data with codec over the defaults and validates the result.
func Decode(data []byte, codec tether.Codec) (Config, error) {
	cfg := Default()
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config (%s): %w", codec.ContentType(), err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level resolves LogLevel, defaulting to info.
func (c Config) Level() zerolog.Level {
	lvl, ok := logging.ParseLevel(c.LogLevel)
	if !ok {
		return zerolog.InfoLevel
	}
	return lvl
}

// Options converts the settings into document options. The logger is
// attached at the configured level.
func (c Config) Options(logger zerolog.Logger) []tether.Option {
	return []tether.Option{
		tether.WithMarkerAttr(c.MarkerAttr),
		tether.WithIDAttr(c.IDAttr),
		tether.WithRefAttr(c.RefAttr),
		tether.WithDebounce(time.Duration(c.Debounce)),
		tether.WithErrorHistory(c.ErrorHistory),
		tether.WithLogger(logger.Level(c.Level())),
	}
}
