// Package logging wraps github.com/rs/zerolog behind the same
// severity-leveled API shape as the teacher's pkg/host.Logger
// (Debug/Info/Warning/Error plus formatted variants), but in pure Go: this
// engine is its own host, so there is no cgo call into a CLAP host's log
// extension to forward to.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin, leveled wrapper over a zerolog.Logger. The zero value
// is not usable; construct with New.
type Logger struct {
	z zerolog.Logger
}

// New returns a Logger writing to w (os.Stderr when w is nil) with the
// given component name attached to every event, matching the teacher's
// convention of tagging log lines with their originating subsystem.
func New(w io.Writer, component string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &Logger{z: z}
}

// Nop returns a Logger that discards everything, for tests and callers
// that don't care about engine diagnostics.
func Nop() *Logger {
	return &Logger{z: zerolog.Nop()}
}

func (l *Logger) Debug(message string) { l.z.Debug().Msg(message) }
func (l *Logger) Info(message string)  { l.z.Info().Msg(message) }
func (l *Logger) Warning(message string) { l.z.Warn().Msg(message) }
func (l *Logger) Error(message string) { l.z.Error().Msg(message) }

func (l *Logger) Debugf(format string, args ...interface{})   { l.z.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})    { l.z.Info().Msgf(format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.z.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.z.Error().Msgf(format, args...) }

// With returns a Logger that attaches an extra key/value field to every
// subsequent event, for tagging per-mixer or per-source diagnostics (e.g.
// a PlaybackId) without building a format string each time.
func (l *Logger) With(key string, value uint64) *Logger {
	return &Logger{z: l.z.With().Uint64(key, value).Logger()}
}
