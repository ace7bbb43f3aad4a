package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w. Debug output is enabled when verbose is set.
func New(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
		Prefix:          "contrapair",
	})
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component returns a child logger tagged with the component name.
// A nil parent yields a discarding logger.
func Component(parent *log.Logger, name string) *log.Logger {
	if parent == nil {
		return Discard()
	}
	return parent.With("component", name)
}
