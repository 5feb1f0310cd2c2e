// ABOUTME: Structured logging configuration using log/slog
// ABOUTME: Configures the default logger for stderr, a log file, or the TUI debug log

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DebugLogName is the file the TUI logs to inside the config directory
const DebugLogName = "debug.log"

// Options selects level, format and destination
type Options struct {
	Level  string // debug, info, warn, error (default: warn)
	Format string // text, json (default: text)
	File   string // empty logs to stderr
}

// Init configures the default slog logger. The returned function closes
// the log file, if one was opened.
func Init(opts Options) (func() error, error) {
	var w io.Writer = os.Stderr
	closer := func() error { return nil }

	if opts.File != "" {
		f, err := openFile(opts.File)
		if err != nil {
			return closer, err
		}
		w = f
		closer = f.Close
	}

	slog.SetDefault(New(w, opts.Level, opts.Format))
	return closer, nil
}

// InitDebugLog sends all logging to <dir>/debug.log so a full-screen
// terminal UI is not disturbed. An empty dir discards logs.
func InitDebugLog(dir, level string) (func() error, error) {
	if dir == "" {
		slog.SetDefault(New(io.Discard, level, "text"))
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return Init(Options{Level: level, File: filepath.Join(dir, DebugLogName)})
}

// New builds a logger writing to w
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func openFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
