// Package logging writes taper's run log files and routes library-level
// structured messages into them.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Level aliases so run commands pick verbosity without importing slog.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
)

var (
	mu     sync.Mutex
	global *slog.Logger
)

// New builds a text-handler logger writing to w at the given level. A nil
// writer yields a logger that discards everything.
func New(level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init replaces the global logger. The run commands call this once after the
// run log file is open so library-level messages land in the same file.
func Init(level slog.Level, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	global = New(level, w)
}

// Global returns the process-wide logger. Before Init runs it writes to
// stderr at info level.
func Global() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global = New(LevelInfo, os.Stderr)
	}
	return global
}

// Debug logs a debug message through the global logger.
func Debug(msg string, args ...any) {
	Global().Debug(msg, args...)
}

// Info logs an informational message through the global logger.
func Info(msg string, args ...any) {
	Global().Info(msg, args...)
}
