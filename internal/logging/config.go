// Package logging builds the zerolog loggers used by the tether binaries and
// tests.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "TETHER_LOG_LEVEL"
	EnvLogTimestamp = "TETHER_LOG_TIMESTAMP"
	EnvLogNoColor   = "TETHER_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config describes a console logger.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// Runtime returns a logger for command line use writing to w.
func Runtime(w io.Writer) zerolog.Logger {
	return New(Configure(ProfileRuntime, w), w)
}

// Tests returns a logger for test runs writing to w.
func Tests(w io.Writer) zerolog.Logger {
	return New(Configure(ProfileTest, w), w)
}

// Configure resolves the profile defaults and env overrides for w.
func Configure(profile Profile, w io.Writer) Config {
	cfg := defaultConfig(profile, w)
	applyEnvOverrides(&cfg)
	return cfg
}

// New builds a console logger from cfg.
func New(cfg Config, w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.Kitchen}
	if !cfg.Timestamp {
		out.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func defaultConfig(profile Profile, w io.Writer) Config {
	cfg := Config{NoColor: !terminal(w)}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

func terminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel maps a level name to a zerolog level. Unknown names report
// false.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
