package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// LogLevel represents logging levels
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger handles structured logging. Entries carry a component and an event
// name plus free-form fields.
type Logger struct {
	slog  *slog.Logger
	level LogLevel
}

// NewLogger creates a new logger writing json or text to output
func NewLogger(format, level string, output io.Writer) *Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:       slogLevel(lvl),
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slog:  slog.New(handler),
		level: lvl,
	}
}

// Open creates a logger for the configured output: stdout, stderr or file.
// The returned closer must be called on shutdown.
func Open(format, level, output, file string) (*Logger, io.Closer, error) {
	switch output {
	case "file":
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return NewLogger(format, level, f), f, nil
	case "stderr":
		return NewLogger(format, level, os.Stderr), nopCloser{}, nil
	default:
		return NewLogger(format, level, os.Stdout), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewLogger("text", "error", io.Discard)
}

// parseLevel converts string to LogLevel
func parseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr renames the slog built-ins to timestamp/level/event and
// lowercases the level.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "event"
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToLower(lvl.String()))
		}
	}
	return a
}

// Enabled reports whether entries at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.level
}

// log writes a log entry
func (l *Logger) log(level LogLevel, component, event string, fields map[string]interface{}) {
	if !l.Enabled(level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("component", component))

	// Stable field order keeps text output diffable
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}

	l.slog.LogAttrs(context.Background(), slogLevel(level), event, attrs...)
}

// Debug logs at debug level
func (l *Logger) Debug(component, event string, fields map[string]interface{}) {
	l.log(DEBUG, component, event, fields)
}

// Info logs at info level
func (l *Logger) Info(component, event string, fields map[string]interface{}) {
	l.log(INFO, component, event, fields)
}

// Warn logs at warn level
func (l *Logger) Warn(component, event string, fields map[string]interface{}) {
	l.log(WARN, component, event, fields)
}

// Error logs at error level
func (l *Logger) Error(component, event string, fields map[string]interface{}) {
	l.log(ERROR, component, event, fields)
}
