// Package logging configures the application's slog loggers: a structured
// JSON logger on stdout, a human-readable text logger on stderr, and
// rotating per-service file loggers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
)

// Init initializes the global loggers. Must be called once at startup
// before any package requests a logger.
func Init(level slog.Leveler) {
	structuredLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(structuredLogger)
}

// Structured returns the global structured (JSON) logger, or nil before Init.
func Structured() *slog.Logger {
	return structuredLogger
}

// HumanReadable returns the global human-readable (text) logger, or nil before Init.
func HumanReadable() *slog.Logger {
	return humanReadableLogger
}

// ForService returns a child of the structured logger tagged with the
// service name. Falls back to slog.Default if Init has not run.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return slog.Default().With("service", serviceName)
	}
	return structuredLogger.With("service", serviceName)
}

// File logger rotation defaults; per-service logs are small and chatty so
// they rotate by size with a short retention.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

// NewFileLogger creates a slog.Logger writing JSON to the given file path
// with lumberjack rotation, tagged with the service name. The returned
// close function releases the underlying writer.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
	}

	handler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With("service", serviceName)

	return logger, logWriter.Close, nil
}

// DiscardLogger returns a logger that drops everything. Used as the
// fallback when a file logger cannot be created, so package-level loggers
// are never nil.
func DiscardLogger(serviceName string) *slog.Logger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(handler).With("service", serviceName)
}
