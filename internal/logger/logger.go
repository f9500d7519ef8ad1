// Package logger configures the process-wide structured logger for the
// semnotes service.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds configuration options for the logger.
type Config struct {
	// Level is the minimum severity to emit: debug, info, warn, error.
	Level string

	// Format selects text or json output.
	Format string

	// Output defaults to os.Stderr. Stdout is reserved for the MCP
	// transport and must never receive log lines.
	Output io.Writer

	// Service is attached to every record. Defaults to "semnotes".
	Service string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Format:  FormatText,
		Output:  os.Stderr,
		Service: "semnotes",
	}
}

// ParseLevel converts a string level to a slog.Level. Unknown strings
// default to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger with the given configuration.
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	service := config.Service
	if service == "" {
		service = "semnotes"
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(config.Level)}

	var handler slog.Handler
	if strings.EqualFold(config.Format, FormatJSON) {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler).With("service", service)
}

// Setup creates a logger from config and installs it as the process
// default used by slog's package-level functions.
func Setup(config *Config) *slog.Logger {
	log := New(config)
	slog.SetDefault(log)
	return log
}
