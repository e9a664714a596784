// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package events

import (
	"context"
	"sync"
)

// BufferedSink retains recent events in memory.
//
// # Description
//
// Keeps the most recent maxEvents of each event kind, dropping the
// oldest when full. Used by tests to assert on emitted events and by
// the HTTP surface to expose a recent-events debugging endpoint.
//
// # Thread Safety
//
// Safe for concurrent use.
type BufferedSink struct {
	mu          sync.Mutex
	maxEvents   int
	completions []CompletionEvent
	crises      []CrisisEvent
}

// NewBufferedSink creates a sink retaining up to maxEvents events of
// each kind. maxEvents <= 0 defaults to 256.
func NewBufferedSink(maxEvents int) *BufferedSink {
	if maxEvents <= 0 {
		maxEvents = 256
	}
	return &BufferedSink{maxEvents: maxEvents}
}

// OnValidationCompleted records the event.
func (s *BufferedSink) OnValidationCompleted(ctx context.Context, event CompletionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, event)
	if len(s.completions) > s.maxEvents {
		s.completions = s.completions[len(s.completions)-s.maxEvents:]
	}
	return nil
}

// OnCrisisDetected records the event.
func (s *BufferedSink) OnCrisisDetected(ctx context.Context, event CrisisEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crises = append(s.crises, event)
	if len(s.crises) > s.maxEvents {
		s.crises = s.crises[len(s.crises)-s.maxEvents:]
	}
	return nil
}

// Completions returns a copy of the retained completion events, oldest
// first.
func (s *BufferedSink) Completions() []CompletionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletionEvent(nil), s.completions...)
}

// Crises returns a copy of the retained crisis events, oldest first.
func (s *BufferedSink) Crises() []CrisisEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CrisisEvent(nil), s.crises...)
}

// MultiSink fans each event out to every wrapped sink. A failing sink
// does not stop delivery to the others; the first error is returned.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// OnValidationCompleted delivers the event to every sink.
func (m *MultiSink) OnValidationCompleted(ctx context.Context, event CompletionEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.OnValidationCompleted(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OnCrisisDetected delivers the event to every sink.
func (m *MultiSink) OnCrisisDetected(ctx context.Context, event CrisisEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.OnCrisisDetected(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
