// Package log provides structured logging for the analysis pipeline.
//
// It is a thin facade over log/slog: a JSON handler wrapped so that errors
// created by pkg/errors have their stack traces emitted as a dedicated
// attribute. Attribute keys used across the pipeline are defined in
// attributes.go so log output stays uniform between stages.
package log

import (
	"fmt"
	"log/slog"
	"os"
)

// Setup installs the default pipeline logger at the given level.
// Levels: "debug", "info", "warn", "error".
func Setup(loglevel string) {
	ops := slog.HandlerOptions{
		Level: ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(os.Stderr, &ops)
	slog.SetDefault(slog.New(WrapByStackHandler(handler)))
}

// ToLogLevel converts a level name to a slog.Level.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// With returns the default logger with a component attribute attached.
func With(component string) *slog.Logger {
	return slog.Default().With(slog.String(ComponentKey, component))
}
