// Package logging builds the zerolog loggers handed to batch calls.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New returns a console logger writing to w (os.Stderr when nil).
// Verbose lowers the level from info to debug.
func New(w io.Writer, verbose bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// OrNop dereferences l, falling back to a disabled logger.
func OrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}

// Batch returns a child logger tagged with the operation name and a fresh
// batch ID, so lines from concurrent batch calls can be told apart.
func Batch(l *zerolog.Logger, op string) zerolog.Logger {
	return OrNop(l).With().
		Str("op", op).
		Str("batch", uuid.NewString()).
		Logger()
}
