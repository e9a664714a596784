// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package events delivers validation lifecycle notifications to
// pluggable sinks. The orchestrator emits events fire-and-forget so a
// slow or failing sink can never delay a verdict.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// Sink receives validation lifecycle events.
//
// # Description
//
// The default implementation is a structured-logging sink; deployments
// integrate alerting or audit pipelines by injecting their own. Crisis
// events are emitted in addition to the completion event whenever a
// validation detects a crisis level of moderate or above, so on-call
// escalation does not have to parse full verdicts.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
//
// # Error Handling
//
// Sink errors never block validation. Callers log errors and move on;
// implementations handle their own retry logic.
type Sink interface {
	// OnValidationCompleted is called once per validation run, after
	// the verdict is finalized, including timed-out and failed runs.
	OnValidationCompleted(ctx context.Context, event CompletionEvent) error

	// OnCrisisDetected is called when a run's merged crisis level is
	// moderate or above, before OnValidationCompleted.
	OnCrisisDetected(ctx context.Context, event CrisisEvent) error
}

// CompletionEvent summarizes one finished validation run.
type CompletionEvent struct {
	Timestamp    time.Time
	ValidationID string
	ContentID    string
	UserID       string
	SessionID    string
	Status       datatypes.VerdictStatus
	Action       datatypes.Action
	SafetyLevel  datatypes.SafetyLevel
	CrisisLevel  datatypes.CrisisLevel
	Confidence   float64
	CacheHit     bool
	Elapsed      time.Duration
}

// CrisisEvent carries the details an escalation handler needs.
type CrisisEvent struct {
	Timestamp                   time.Time
	ValidationID                string
	ContentID                   string
	UserID                      string
	SessionID                   string
	CrisisLevel                 datatypes.CrisisLevel
	ImmediateInterventionNeeded bool
	Indicators                  []string
	RiskFactors                 []string
	ProtectiveFactors           []string
	RecommendedActions          []string
}

// noopSink discards all events.
//
// # Thread Safety
//
// Safe for concurrent use (stateless).
type noopSink struct{}

func (noopSink) OnValidationCompleted(ctx context.Context, event CompletionEvent) error {
	return nil
}

func (noopSink) OnCrisisDetected(ctx context.Context, event CrisisEvent) error {
	return nil
}

// NewNoopSink returns a sink that discards all events. Useful for
// tests and one-shot CLI validation.
func NewNoopSink() Sink {
	return noopSink{}
}

// LoggingSink writes events to a structured logger. This is the
// default production sink.
type LoggingSink struct {
	logger *slog.Logger
}

// NewLoggingSink creates a sink over logger. If logger is nil, slog's
// default logger is used.
func NewLoggingSink(logger *slog.Logger) *LoggingSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingSink{logger: logger}
}

// OnValidationCompleted logs the completion at info level, or warn for
// non-completed runs.
func (s *LoggingSink) OnValidationCompleted(ctx context.Context, event CompletionEvent) error {
	attrs := []any{
		"validation_id", event.ValidationID,
		"content_id", event.ContentID,
		"status", string(event.Status),
		"action", string(event.Action),
		"safety_level", string(event.SafetyLevel),
		"crisis_level", string(event.CrisisLevel),
		"confidence", event.Confidence,
		"cache_hit", event.CacheHit,
		"elapsed_ms", event.Elapsed.Milliseconds(),
	}
	if event.Status == datatypes.StatusCompleted {
		s.logger.InfoContext(ctx, "validation completed", attrs...)
	} else {
		s.logger.WarnContext(ctx, "validation did not complete cleanly", attrs...)
	}
	return nil
}

// OnCrisisDetected logs the crisis at error level so alerting rules
// can key off severity alone.
func (s *LoggingSink) OnCrisisDetected(ctx context.Context, event CrisisEvent) error {
	s.logger.ErrorContext(ctx, "crisis detected",
		"validation_id", event.ValidationID,
		"content_id", event.ContentID,
		"user_id", event.UserID,
		"session_id", event.SessionID,
		"crisis_level", string(event.CrisisLevel),
		"immediate_intervention", event.ImmediateInterventionNeeded,
		"indicators", event.Indicators,
		"risk_factors", event.RiskFactors,
	)
	return nil
}
