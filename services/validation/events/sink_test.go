// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

func TestBufferedSinkRecordsEvents(t *testing.T) {
	sink := NewBufferedSink(10)
	ctx := context.Background()

	require.NoError(t, sink.OnValidationCompleted(ctx, CompletionEvent{
		ValidationID: "val-1",
		Status:       datatypes.StatusCompleted,
		Action:       datatypes.ActionApprove,
	}))
	require.NoError(t, sink.OnCrisisDetected(ctx, CrisisEvent{
		ValidationID: "val-2",
		CrisisLevel:  datatypes.CrisisHigh,
	}))

	completions := sink.Completions()
	require.Len(t, completions, 1)
	assert.Equal(t, "val-1", completions[0].ValidationID)

	crises := sink.Crises()
	require.Len(t, crises, 1)
	assert.Equal(t, datatypes.CrisisHigh, crises[0].CrisisLevel)
}

func TestBufferedSinkDropsOldestWhenFull(t *testing.T) {
	sink := NewBufferedSink(2)
	ctx := context.Background()

	for _, id := range []string{"val-1", "val-2", "val-3"} {
		require.NoError(t, sink.OnValidationCompleted(ctx, CompletionEvent{ValidationID: id}))
	}

	completions := sink.Completions()
	require.Len(t, completions, 2)
	assert.Equal(t, "val-2", completions[0].ValidationID)
	assert.Equal(t, "val-3", completions[1].ValidationID)
}

func TestLoggingSinkEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewLoggingSink(logger)
	ctx := context.Background()

	require.NoError(t, sink.OnValidationCompleted(ctx, CompletionEvent{
		Timestamp:    time.Now(),
		ValidationID: "val-1",
		ContentID:    "content-1",
		Status:       datatypes.StatusCompleted,
		Action:       datatypes.ActionWarn,
		SafetyLevel:  datatypes.SafetyWarning,
		CrisisLevel:  datatypes.CrisisNone,
	}))
	out := buf.String()
	assert.Contains(t, out, `"validation_id":"val-1"`)
	assert.Contains(t, out, `"action":"warn"`)
	assert.Contains(t, out, `"level":"INFO"`)

	buf.Reset()
	require.NoError(t, sink.OnValidationCompleted(ctx, CompletionEvent{
		ValidationID: "val-2",
		Status:       datatypes.StatusTimedOut,
		Action:       datatypes.ActionFlagForReview,
	}))
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	require.NoError(t, sink.OnCrisisDetected(ctx, CrisisEvent{
		ValidationID: "val-3",
		CrisisLevel:  datatypes.CrisisSevere,
		Indicators:   []string{"i want to die"},
	}))
	out = buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"crisis_level":"severe"`)
}

// errorSink fails every delivery.
type errorSink struct{}

func (errorSink) OnValidationCompleted(context.Context, CompletionEvent) error {
	return errors.New("sink down")
}

func (errorSink) OnCrisisDetected(context.Context, CrisisEvent) error {
	return errors.New("sink down")
}

func TestMultiSinkDeliversPastFailures(t *testing.T) {
	buffered := NewBufferedSink(10)
	multi := NewMultiSink(errorSink{}, buffered)
	ctx := context.Background()

	err := multi.OnValidationCompleted(ctx, CompletionEvent{ValidationID: "val-1"})
	require.Error(t, err)
	require.Len(t, buffered.Completions(), 1, "later sinks still receive the event")

	err = multi.OnCrisisDetected(ctx, CrisisEvent{ValidationID: "val-1"})
	require.Error(t, err)
	require.Len(t, buffered.Crises(), 1)
}
