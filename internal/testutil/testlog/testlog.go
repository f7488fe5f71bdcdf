// Package testlog wires test loggers.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/zoobzio/tether/internal/logging"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Start returns a logger that writes through t.Log at the test profile
// level.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	log := logging.Tests(testWriter{t: t})
	log.Info().Str("test", t.Name()).Msg("start")
	return log
}
