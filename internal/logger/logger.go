// Package logger configures the zerolog logger shared by the whole service.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error (default info).
	Level string
	// Pretty enables human-readable console output.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

// Configure builds the root logger, installs it as the zerolog global and
// returns it so callers can pass it down explicitly.
func Configure(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = cfg.Output
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = l
	return l
}

// Nop returns a disabled logger, handy in tests.
func Nop() zerolog.Logger { return zerolog.Nop() }
