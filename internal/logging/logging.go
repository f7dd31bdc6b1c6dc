// Package logging builds the service's zerolog logger and adapts it to the
// Logf-style Logger interfaces of the library packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Default: "info"
	Level string

	// Format is "json" or "console". Default: "json"
	Format string

	// Output receives log lines. Default: os.Stderr
	Output io.Writer
}

// New returns a timestamped zerolog logger.
func New(opts Options) (zerolog.Logger, error) {
	if opts.Level == "" {
		opts.Level = "info"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(opts.Format) {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", opts.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Logf adapts a zerolog logger to the Logf interface used by the exec and
// code packages. Messages are logged at info level.
type Logf struct {
	logger zerolog.Logger
}

// NewLogf returns a Logf writing through logger with a component field.
func NewLogf(logger zerolog.Logger, component string) Logf {
	return Logf{logger: logger.With().Str("component", component).Logger()}
}

// Logf logs a formatted message.
func (l Logf) Logf(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}
