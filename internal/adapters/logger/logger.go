// Package logger implements the logging adapter using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger implements ports.Logger using log/slog. Output goes to stderr;
// stdout is reserved for plan and report rendering.
type Logger struct {
	mu     sync.RWMutex
	logger *slog.Logger
}

// New creates a new Logger writing to stderr.
func New() *Logger {
	return &Logger{
		logger: slog.New(newHandler(os.Stderr)),
	}
}

// SetOutput redirects the logger. Used by tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = slog.New(newHandler(w))
}

// Info logs an informational message with structured fields.
func (l *Logger) Info(msg string, kv ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg, kv...)
}

// Warn logs a warning with structured fields.
func (l *Logger) Warn(msg string, kv ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg, kv...)
}

// Error logs an error with structured fields.
func (l *Logger) Error(err error, kv ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Error("operation failed", append([]any{"error", err}, kv...)...)
}

func newHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}
