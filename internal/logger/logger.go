// Package logger provides the process-wide structured logger for Sensei.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the global logger instance used throughout Sensei.
var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
}

// Configure sets the level and destination of the global logger. An empty
// file logs to stderr; json switches to one JSON object per line.
func Configure(level, file string, json bool) error {
	var out io.Writer = os.Stderr
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		out = f
	}
	opts := log.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(level),
	}
	if json {
		opts.Formatter = log.JSONFormatter
	}
	Logger = log.NewWithOptions(out, opts)
	return nil
}

// SetOutput redirects the global logger, keeping its level. Tests use it to
// capture or silence log output.
func SetOutput(w io.Writer) {
	level := Logger.GetLevel()
	Logger = log.NewWithOptions(w, log.Options{Level: level})
}

// ParseLevel converts a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// With returns a component logger that prefixes every line.
func With(component string) *log.Logger {
	return Logger.WithPrefix(component)
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}
