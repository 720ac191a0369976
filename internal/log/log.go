// Package log configures the process-wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotse/slug"
	slogmulti "github.com/samber/slog-multi"
)

// Level is a configured log level name.
type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// ToSlogLevel maps our levels to the equivalent slog level.
func ToSlogLevel(level Level) slog.Level {
	switch Level(strings.ToLower(string(level))) {
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Options selects where log records go.
type Options struct {
	Level Level
	// File, when set, receives every record.
	File string
	// Console additionally writes to stderr. The terminal dashboard leaves
	// this off so log lines do not corrupt the screen.
	Console bool
}

// Setup builds the logger, installs it as the slog default, and returns it
// with a cleanup function to call on shutdown.
func Setup(opts Options) (*slog.Logger, func(), error) {
	var (
		closer      = func() {}
		handlerOpts = slug.HandlerOptions{
			HandlerOptions: slog.HandlerOptions{
				Level: ToSlogLevel(opts.Level),
			},
		}
		handlers []slog.Handler
	)

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, closer, fmt.Errorf("creating log directory: %w", err)
		}
		logFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, closer, fmt.Errorf("opening log file %s: %w", opts.File, err)
		}
		closer = func() { Closer(logFile) }
		handlers = append(handlers, slug.NewHandler(handlerOpts, logFile))
	}

	if opts.Console || len(handlers) == 0 {
		handlers = append(handlers, slug.NewHandler(handlerOpts, os.Stderr))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	slog.SetDefault(logger)

	return logger, closer, nil
}

// ErrAttr wraps an error as a log attribute.
func ErrAttr(err error) slog.Attr {
	return slog.Any("reason", err)
}

// Closer closes c and logs a failure.
func Closer(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Error("Failed to close", ErrAttr(err))
	}
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
