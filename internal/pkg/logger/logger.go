// Package logger provides structured logging utilities.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	reqctx "github.com/nrlogs/nrlogs/internal/pkg/context"
)

// Logger wraps slog.Logger with additional context.
type Logger struct {
	*slog.Logger
}

// New creates a new logger with the specified level and format.
// Output goes to stderr: stdout carries the MCP protocol stream.
func New(level, format string) *Logger {
	return NewWithWriter(level, format, os.Stderr)
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(level, format string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewFile creates a logger appending to the file at path. The returned
// closer releases the file.
func NewFile(level, format, path string) (*Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return NewWithWriter(level, format, f), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger with context values.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if reqID := reqctx.GetRequestID(ctx); reqID != "" {
		return &Logger{
			Logger: l.With("request_id", reqID),
		}
	}
	return l
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.With("component", name),
	}
}

// WithAccount returns a logger with account context.
func (l *Logger) WithAccount(accountID string) *Logger {
	return &Logger{
		Logger: l.With("account_id", accountID),
	}
}

// WithTool returns a logger with MCP tool context.
func (l *Logger) WithTool(tool string) *Logger {
	return &Logger{
		Logger: l.With("tool", tool),
	}
}

// WithError returns a logger with error context.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.With("error", err.Error()),
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the default logger.
func Default() *Logger {
	return New("info", "text")
}
