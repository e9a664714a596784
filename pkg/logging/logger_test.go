// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ===== Level Tests =====

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{" Error ", LevelError},
		{"verbose", LevelInfo}, // unknown falls back to info
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// ===== Logger Tests =====

func TestNew_StderrOnly(t *testing.T) {
	logger := New(Config{Level: LevelInfo, Service: "test"})
	defer logger.Close()

	if logger.logFile != nil {
		t.Error("expected no log file when LogDir is empty")
	}

	// Should not panic.
	logger.Debug("debug msg", "k", "v")
	logger.Info("info msg", "k", "v")
	logger.Warn("warn msg", "k", "v")
	logger.Error("error msg", "k", "v")
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		Service: "filetest",
		LogDir:  dir,
	})

	logger.Info("written to file", "key", "value")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	name := "filetest_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"filetest"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestNew_BadLogDirFallsBackToStderr(t *testing.T) {
	// A file in place of the directory makes MkdirAll fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := New(Config{Level: LevelInfo, Service: "bad", LogDir: blocker})
	defer logger.Close()

	if logger.logFile != nil {
		t.Error("expected fallback to stderr when log dir creation fails")
	}
	logger.Info("still works")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := &Logger{slogger: slog.New(handler)}

	child := logger.With("request_id", "r-1")
	child.Info("hello")

	if !strings.Contains(buf.String(), `"request_id":"r-1"`) {
		t.Errorf("With attribute missing, got: %s", buf.String())
	}
}

func TestLogger_CloseIdempotent(t *testing.T) {
	logger := New(Config{Level: LevelInfo, Service: "close", LogDir: t.TempDir()})

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

// ===== Multi Handler Tests =====

type failingHandler struct {
	err error
}

func (h *failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h *failingHandler) Handle(context.Context, slog.Record) error { return h.err }
func (h *failingHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *failingHandler) WithGroup(string) slog.Handler             { return h }

func TestMultiHandler_DeliversToAll(t *testing.T) {
	var a, b bytes.Buffer
	mh := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}

	slog.New(mh).Info("fan out")

	for i, buf := range []*bytes.Buffer{&a, &b} {
		if !strings.Contains(buf.String(), "fan out") {
			t.Errorf("handler %d missing record, got: %s", i, buf.String())
		}
	}
}

func TestMultiHandler_FailureDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	wantErr := errors.New("boom")
	mh := &multiHandler{handlers: []slog.Handler{
		&failingHandler{err: wantErr},
		slog.NewJSONHandler(&buf, nil),
	}}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "survives", 0)
	err := mh.Handle(context.Background(), rec)

	if !errors.Is(err, wantErr) {
		t.Errorf("Handle() error = %v, want %v", err, wantErr)
	}
	if !strings.Contains(buf.String(), "survives") {
		t.Errorf("healthy handler missing record, got: %s", buf.String())
	}
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	mh := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	slog.New(mh).Info("info only")

	if !strings.Contains(debugBuf.String(), "info only") {
		t.Error("debug handler should receive info record")
	}
	if errorBuf.Len() != 0 {
		t.Errorf("error handler should filter info record, got: %s", errorBuf.String())
	}
}

// ===== Path Expansion =====

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir in test environment")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/logs", filepath.Join(home, "logs")},
		{"/var/log/emberguard", "/var/log/emberguard"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := expandPath(tt.in); got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
