// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

func testContent(text string) datatypes.ContentItem {
	return datatypes.ContentItem{ID: "content-1", Text: text, Type: "dialogue"}
}

func testVerdict(action datatypes.Action) *datatypes.Verdict {
	v := datatypes.NewVerdict("val-1", "content-1", datatypes.SafetySafe)
	v.Fold(datatypes.StageResult{
		StageID: "content_safety",
		Status:  datatypes.StageOK,
		Payload: datatypes.StagePayload{
			RecommendedAction: action,
			Confidence:        0.9,
			AlignmentScore:    -1,
		},
	})
	v.Finalize(datatypes.StatusCompleted, false)
	return v
}

func TestFingerprintStableAcrossDeclarationOrder(t *testing.T) {
	content := testContent("hello there")

	a := datatypes.ValidationContext{
		Scope:            "session",
		TherapeuticGoals: []string{"cbt", "mindfulness"},
		RiskFactors:      []string{"isolation", "recent_loss"},
	}
	b := datatypes.ValidationContext{
		Scope:            "session",
		TherapeuticGoals: []string{"mindfulness", "cbt"},
		RiskFactors:      []string{"recent_loss", "isolation"},
	}

	assert.Equal(t, Fingerprint(content, a), Fingerprint(content, b))
}

func TestFingerprintIgnoresUserAndSession(t *testing.T) {
	content := testContent("hello there")

	a := datatypes.ValidationContext{UserID: "user-a", SessionID: "sess-1", Scope: "session"}
	b := datatypes.ValidationContext{UserID: "user-b", SessionID: "sess-2", Scope: "session"}

	assert.Equal(t, Fingerprint(content, a), Fingerprint(content, b))
}

func TestFingerprintVariesByInput(t *testing.T) {
	base := datatypes.ValidationContext{Scope: "session"}
	content := testContent("hello there")
	baseline := Fingerprint(content, base)

	tests := []struct {
		name    string
		content datatypes.ContentItem
		vctx    datatypes.ValidationContext
	}{
		{"different text", testContent("hello world"), base},
		{"different scope", content, datatypes.ValidationContext{Scope: "global"}},
		{"strict mode", content, datatypes.ValidationContext{Scope: "session", StrictMode: true}},
		{"different goals", content, datatypes.ValidationContext{Scope: "session", TherapeuticGoals: []string{"dbt"}}},
		{"different risk factors", content, datatypes.ValidationContext{Scope: "session", RiskFactors: []string{"isolation"}}},
		{"different age group", datatypes.ContentItem{ID: "content-1", Text: "hello there", AgeGroup: "child"}, base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, baseline, Fingerprint(tt.content, tt.vctx))
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(16)
	verdict := testVerdict(datatypes.ActionApprove)

	require.NoError(t, store.Set("fp-1", "user-1", verdict, time.Minute))

	got, found, err := store.Get("fp-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, verdict.ValidationID, got.ValidationID)
	assert.Equal(t, verdict.Action, got.Action)

	_, found, err = store.Get("fp-missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreReturnsClones(t *testing.T) {
	store := NewMemoryStore(16)
	require.NoError(t, store.Set("fp-1", "user-1", testVerdict(datatypes.ActionApprove), time.Minute))

	first, found, err := store.Get("fp-1")
	require.NoError(t, err)
	require.True(t, found)
	first.Indicators = append(first.Indicators, "mutated")
	first.Action = datatypes.ActionReject

	second, found, err := store.Get("fp-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, second.Indicators, "mutated")
	assert.Equal(t, datatypes.ActionApprove, second.Action)
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	store := NewMemoryStore(16)
	require.NoError(t, store.Set("fp-1", "user-1", testVerdict(datatypes.ActionApprove), 5*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	_, found, err := store.Get("fp-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Size())
}

func TestMemoryStoreEvictsLRU(t *testing.T) {
	store := NewMemoryStore(2)
	verdict := testVerdict(datatypes.ActionApprove)

	require.NoError(t, store.Set("fp-1", "user-1", verdict, time.Minute))
	require.NoError(t, store.Set("fp-2", "user-1", verdict, time.Minute))

	// Touch fp-1 so fp-2 becomes least recently used.
	_, found, err := store.Get("fp-1")
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, store.Set("fp-3", "user-1", verdict, time.Minute))

	_, found, _ = store.Get("fp-2")
	assert.False(t, found, "least recently used entry should be evicted")
	_, found, _ = store.Get("fp-1")
	assert.True(t, found)
	_, found, _ = store.Get("fp-3")
	assert.True(t, found)
}

func TestMemoryStoreClearForUser(t *testing.T) {
	store := NewMemoryStore(16)
	verdict := testVerdict(datatypes.ActionApprove)

	require.NoError(t, store.Set("fp-a1", "user-a", verdict, time.Minute))
	require.NoError(t, store.Set("fp-a2", "user-a", verdict, time.Minute))
	require.NoError(t, store.Set("fp-b1", "user-b", verdict, time.Minute))

	require.NoError(t, store.ClearForUser("user-a"))

	_, found, _ := store.Get("fp-a1")
	assert.False(t, found)
	_, found, _ = store.Get("fp-a2")
	assert.False(t, found)
	_, found, _ = store.Get("fp-b1")
	assert.True(t, found, "other users' entries must survive")
}

// failingStore fails every operation, for degraded-mode tests.
type failingStore struct{}

func (failingStore) Get(string) (*datatypes.Verdict, bool, error) {
	return nil, false, errors.New("store down")
}
func (failingStore) Set(string, string, *datatypes.Verdict, time.Duration) error {
	return errors.New("store down")
}
func (failingStore) Invalidate(string) error   { return errors.New("store down") }
func (failingStore) ClearForUser(string) error { return errors.New("store down") }
func (failingStore) Close() error              { return nil }

func TestCacheDegradesToMissOnStoreError(t *testing.T) {
	c := New(failingStore{}, time.Minute, nil)

	verdict, fingerprint, found := c.Get(testContent("hello"), datatypes.ValidationContext{})
	assert.False(t, found)
	assert.Nil(t, verdict)
	assert.NotEmpty(t, fingerprint)

	c.Set(fingerprint, "user-1", testVerdict(datatypes.ActionApprove))
	c.Invalidate(fingerprint)
	c.ClearForUser("user-1")

	assert.Equal(t, int64(4), c.StoreErrors())
	assert.Equal(t, int64(1), c.Misses())
	assert.Equal(t, int64(0), c.Hits())
}

func TestCacheHitMarksVerdict(t *testing.T) {
	c := New(NewMemoryStore(16), time.Minute, nil)
	content := testContent("hello")
	vctx := datatypes.ValidationContext{Scope: "session"}

	_, fingerprint, found := c.Get(content, vctx)
	require.False(t, found)

	stored := testVerdict(datatypes.ActionApprove)
	c.Set(fingerprint, "user-1", stored)
	require.False(t, stored.CacheHit, "caching must not mutate the caller's verdict")

	got, _, found := c.Get(content, vctx)
	require.True(t, found)
	assert.True(t, got.CacheHit)
	assert.Equal(t, int64(1), c.Hits())
	assert.InDelta(t, 0.5, c.HitRate(), 0.001)
}

func TestCacheSkipsNonCompletedVerdicts(t *testing.T) {
	c := New(NewMemoryStore(16), time.Minute, nil)
	content := testContent("hello")
	vctx := datatypes.ValidationContext{}

	timedOut := testVerdict(datatypes.ActionFlagForReview)
	timedOut.Status = datatypes.StatusTimedOut

	_, fingerprint, _ := c.Get(content, vctx)
	c.Set(fingerprint, "user-1", timedOut)

	_, _, found := c.Get(content, vctx)
	assert.False(t, found, "timed-out verdicts must not be cached")
}
