// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Emberguard components.
//
// The package is a thin layer over the standard library slog package.
// It exists so every binary configures logging the same way: stderr by
// default (text for humans, JSON when requested), with an optional log
// file alongside for deployments that want a local audit trail.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("validation completed", "validation_id", id)
//
// # Service Binaries
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    Service: "emberguard-validation",
//	    JSON:    true,
//	    LogDir:  "~/.emberguard/logs",
//	})
//	defer logger.Close()
//
// # Security Considerations
//
// Nothing here redacts content. Validated text can contain deeply
// personal disclosures, so callers log identifiers and outcomes, never
// the content itself.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ===== Log Levels =====

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", or "ERROR".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a config string to a Level. Unrecognized values fall
// back to LevelInfo so a typo in a config file loosens logging instead
// of silencing it.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ===== Configuration =====

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity to emit.
	Level Level

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches the stderr handler from text to JSON. File output
	// is always JSON regardless of this setting.
	JSON bool

	// LogDir, when non-empty, enables file logging. The directory is
	// created if missing and the file is named {service}_{date}.log.
	// A leading ~ expands to the user's home directory.
	LogDir string
}

// ===== Logger =====

// Logger wraps slog with multi-destination output.
//
// # Thread Safety
//
// Logger is safe for concurrent use. The mutex guards only the file
// handle during Close; the slog handlers are themselves thread-safe.
type Logger struct {
	slogger *slog.Logger

	mu      sync.Mutex
	logFile *os.File
}

// New creates a Logger from config. Construction never fails: if the
// log directory or file cannot be created, the logger falls back to
// stderr only and reports the problem there.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var stderrHandler slog.Handler
	if config.JSON {
		stderrHandler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		stderrHandler = slog.NewTextHandler(os.Stderr, opts)
	}

	handlers := []slog.Handler{stderrHandler}

	var logFile *os.File
	if config.LogDir != "" {
		dir := expandPath(config.LogDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "logging: cannot create log dir %s: %v\n", dir, err)
		} else {
			name := fmt.Sprintf("%s_%s.log", config.Service, time.Now().Format("2006-01-02"))
			f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "logging: cannot open log file: %v\n", err)
			} else {
				logFile = f
				handlers = append(handlers, slog.NewJSONHandler(f, opts))
			}
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &multiHandler{handlers: handlers}
	}

	slogger := slog.New(handler)
	if config.Service != "" {
		slogger = slogger.With("service", config.Service)
	}

	return &Logger{slogger: slogger, logFile: logFile}
}

// Default returns a stderr-only text logger at Info level.
func Default() *Logger {
	return New(Config{Level: LevelInfo})
}

// Debug logs at debug level with alternating key-value args.
func (l *Logger) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }

// Info logs at info level with alternating key-value args.
func (l *Logger) Info(msg string, args ...any) { l.slogger.Info(msg, args...) }

// Warn logs at warn level with alternating key-value args.
func (l *Logger) Warn(msg string, args ...any) { l.slogger.Warn(msg, args...) }

// Error logs at error level with alternating key-value args.
func (l *Logger) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

// With returns a Logger that includes the given attributes on every
// record. The returned Logger shares the underlying file handle, so
// Close should only be called on the root logger.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slogger: l.slogger.With(args...), logFile: l.logFile}
}

// Slog exposes the underlying *slog.Logger for packages that take the
// standard library type directly.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close flushes and closes the log file, if any. Safe to call on a
// stderr-only logger and safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// ===== Multi Handler =====

// multiHandler fans out records to every configured handler. A failed
// handler does not stop delivery to the others; the first error wins.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
