// Package logging wraps log/slog with a tint handler and keeps the short
// package-level helpers used across the daemon.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var (
	disabled atomic.Bool
	current  atomic.Pointer[slog.Logger]
)

func init() {
	Setup(os.Stderr, "info")
}

// Setup installs a tint handler writing to w at the given level. Colour is
// only used when w is a terminal.
func Setup(w io.Writer, level string) {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	l := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
	current.Store(l)
	slog.SetDefault(l)
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the active logger, or a discarding one while logging is disabled.
func L() *slog.Logger {
	if disabled.Load() {
		return slog.New(slog.DiscardHandler)
	}
	return current.Load()
}

// With returns a logger tagged with a component attribute.
func With(component string) *slog.Logger {
	return L().With("component", component)
}

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

// Info logs an info message with optional key/value attributes.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	L().Info(fmt.Sprintf(format, v...))
}

// Error logs an error message with optional key/value attributes.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	L().Error(fmt.Sprintf(format, v...))
}

// Warn logs a warning message with optional key/value attributes.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	L().Warn(fmt.Sprintf(format, v...))
}

// Debug logs a debug message with optional key/value attributes.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	L().Debug(fmt.Sprintf(format, v...))
}
