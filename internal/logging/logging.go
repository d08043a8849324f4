// Package logging configures the process-wide console logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w. When verbose is true the
// logger emits debug-level events (external command traces, artifact
// deletions); otherwise it starts at info level.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// Nop returns a disabled logger for callers that do not want output.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
