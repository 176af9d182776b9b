// Package logging builds the logrus logger handed to every component.
// Nothing in the module reads a process-wide logger.
package logging

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const timestampFormat = "2006-01-02 15:04:05"

// Options configures the logger.
type Options struct {
	// Verbose enables debug output.
	Verbose bool
	// Format is "text" (default) or "json".
	Format string
}

// New returns a logger writing to w. Info is the default level.
func New(w io.Writer, opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	logger.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	switch opts.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			DisableColors:   true,
		})
	}
	return logger
}

// WithRun tags every entry with a fresh run_id so one invocation's lines can be
// correlated in aggregated logs.
func WithRun(logger logrus.FieldLogger) *logrus.Entry {
	return logger.WithField("run_id", uuid.NewString())
}
