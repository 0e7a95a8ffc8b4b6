// Package logger provides structured logging configuration using log/slog.
//
// Records are rendered by a charmbracelet/log handler and can additionally be
// written to a size-rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text", "logfmt" or "json"

	// File, when set, receives a copy of every record with size-based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Output defaults to os.Stderr.
	Output io.Writer
}

// NewLogger creates a configured slog.Logger.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			Compress:   true,
		})
	}

	handler := charmlog.NewWithOptions(out, charmlog.Options{
		Level:           charmlog.Level(cfg.Level),
		Formatter:       formatter(cfg.Format),
		ReportTimestamp: true,
		// Add a source location for debug level
		ReportCaller: cfg.Level <= slog.LevelDebug,
		Prefix:       "gotune",
	})

	return slog.New(handler)
}

func formatter(format string) charmlog.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return charmlog.JSONFormatter
	case "logfmt":
		return charmlog.LogfmtFormatter
	default:
		return charmlog.TextFormatter
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// ParseLevel maps a level name to a slog.Level.
// Valid values: DEBUG, INFO, WARN, WARNING, ERROR. Unknown values return fallback.
func ParseLevel(name string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return fallback
	}
}

// DefaultConfig returns the default logger configuration.
// Parses the GOTUNE_LOG_LEVEL environment variable to set the log level.
// Default: INFO
func DefaultConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("GOTUNE_LOG_LEVEL"), slog.LevelInfo),
		Format: "text",
	}
}
