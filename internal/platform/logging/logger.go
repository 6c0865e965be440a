package logging

import (
	"log/slog"
	"os"

	"github.com/pdittrich/fandial/internal/platform/correlation"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	// The device host captures the plugin's stderr; stdout stays clean for
	// the host's own use.
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	handler = correlation.NewHandler(handler)

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithInstance returns a logger with the dial instance id field.
func WithInstance(instanceID string) *slog.Logger {
	return Logger.With("instance_id", instanceID)
}

// WithFan returns a logger with the fan nickname field.
func WithFan(fan string) *slog.Logger {
	return Logger.With("fan", fan)
}
