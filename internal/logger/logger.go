// Package logger provides structured logging for coursedex.
// Messages are key-value pairs written through log/slog. Debug output is
// only emitted in verbose mode (the --verbose flag).
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Format selects the log encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format  = FormatText
	output  io.Writer = os.Stderr
	base    slog.Handler
	level   = new(slog.LevelVar)
	root    = slog.New(&switchHandler{})
)

func init() {
	rebuild()
}

// rebuild recreates the base handler (caller must hold lock or be init).
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		base = slog.NewJSONHandler(output, opts)
	} else {
		base = slog.NewTextHandler(output, opts)
	}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetFormat switches between text and JSON output.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	if f != FormatJSON {
		f = FormatText
	}
	format = f
	rebuild()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Logger returns the root structured logger.
func Logger() *slog.Logger {
	return root
}

// Component returns a logger tagged with a component attribute.
// The returned logger follows later SetOutput/SetVerbose calls.
func Component(name string) *slog.Logger {
	return root.With("component", name)
}

// Debug logs at debug level; only visible in verbose mode.
func Debug(msg string, args ...any) {
	root.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	root.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	root.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	root.Error(msg, args...)
}

// Section logs a debug marker separating pipeline stages.
func Section(name string) {
	root.Debug("=== " + name + " ===")
}

// switchHandler resolves the current base handler on every record so
// loggers created before SetOutput still write to the new destination.
type switchHandler struct {
	attrs  []slog.Attr
	groups []string
}

func current() slog.Handler {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func (h *switchHandler) resolve() slog.Handler {
	out := current()
	if len(h.attrs) > 0 {
		out = out.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		out = out.WithGroup(g)
	}
	return out
}

func (h *switchHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return current().Enabled(ctx, l)
}

func (h *switchHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &switchHandler{groups: h.groups}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *switchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := &switchHandler{attrs: h.attrs}
	next.groups = append(append([]string{}, h.groups...), name)
	return next
}
