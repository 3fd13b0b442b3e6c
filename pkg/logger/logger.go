// Package logger provides context-aware structured logging using logrus.
// The HTTP server attaches a request-scoped entry to each request context so
// handlers and the packages they call log with the same fields.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// FormatText writes key=value lines.
	FormatText = "fmt"
	// FormatJSON writes one JSON object per line.
	FormatJSON = "json"
)

var (
	// G is a convenience alias for GetLogger.
	G = GetLogger
	// L is the global logger entry used when no logger is found in context.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger attaches a logger entry to ctx, making it retrievable via GetLogger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger.WithContext(ctx))
}

// WithFields derives a logger from the one already in ctx, adds fields to it
// and stores the result back into a new context.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return WithLogger(ctx, G(ctx).WithFields(fields))
}

// GetLogger retrieves the logger entry from ctx, falling back to L.
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter, _ = newFormatter(FormatText)
	return l
}

// newFormatter accepts "text" as an alias of FormatText.
func newFormatter(format string) (logrus.Formatter, error) {
	switch format {
	case FormatJSON:
		return &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}, nil
	case FormatText, "text", "":
		return &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		}, nil
	default:
		return nil, errors.Errorf("unknown log format %q (expected %s or %s)", format, FormatText, FormatJSON)
	}
}

// ValidateFormat reports whether format names a supported log format.
func ValidateFormat(format string) error {
	_, err := newFormatter(format)
	return err
}

// SetLogLevel sets the level of the global logger.
func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(logLevel)
	return nil
}

// SetLogFormat sets the format of the global logger. An unknown format leaves
// the current one in place.
func SetLogFormat(format string) error {
	formatter, err := newFormatter(format)
	if err != nil {
		return err
	}
	L.Logger.SetFormatter(formatter)
	return nil
}

// Configure applies a level and a format to the global logger.
func Configure(level, format string) error {
	if err := SetLogLevel(level); err != nil {
		return err
	}
	return SetLogFormat(format)
}

// SetLogOutput sets the output destination for the global logger
func SetLogOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
