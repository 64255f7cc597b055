// Package logging configures the process-wide slog logger. Records are
// rendered by a charmbracelet/log handler on stderr.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures the logger.
type Options struct {
	Verbose bool      // Debug level instead of warn
	JSON    bool      // JSON lines instead of styled text
	Writer  io.Writer // Defaults to os.Stderr
	Prefix  string
}

// New creates a slog logger backed by a charmbracelet/log handler.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := log.WarnLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	formatter := log.TextFormatter
	if opts.JSON {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Verbose,
		Formatter:       formatter,
	})
	return slog.New(handler)
}

// Setup installs a logger built from opts as the slog default and returns
// it.
func Setup(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}
