// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := newTestBadgerStore(t)
	verdict := testVerdict(datatypes.ActionWarn)

	require.NoError(t, store.Set("fp-1", "user-1", verdict, time.Minute))

	got, found, err := store.Get("fp-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, verdict.ValidationID, got.ValidationID)
	assert.Equal(t, datatypes.ActionWarn, got.Action)
	assert.Equal(t, verdict.SafetyLevel, got.SafetyLevel)

	_, found, err = store.Get("fp-missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBadgerStoreInvalidate(t *testing.T) {
	store := newTestBadgerStore(t)

	require.NoError(t, store.Set("fp-1", "user-1", testVerdict(datatypes.ActionApprove), time.Minute))
	require.NoError(t, store.Invalidate("fp-1"))

	_, found, err := store.Get("fp-1")
	require.NoError(t, err)
	assert.False(t, found)

	// Invalidating a missing key is a no-op.
	require.NoError(t, store.Invalidate("fp-1"))
}

func TestBadgerStoreClearForUser(t *testing.T) {
	store := newTestBadgerStore(t)
	verdict := testVerdict(datatypes.ActionApprove)

	require.NoError(t, store.Set("fp-a1", "user-a", verdict, time.Minute))
	require.NoError(t, store.Set("fp-a2", "user-a", verdict, time.Minute))
	require.NoError(t, store.Set("fp-b1", "user-b", verdict, time.Minute))

	require.NoError(t, store.ClearForUser("user-a"))

	_, found, err := store.Get("fp-a1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, _ = store.Get("fp-a2")
	assert.False(t, found)
	_, found, _ = store.Get("fp-b1")
	assert.True(t, found)
}

func TestBadgerStoreAnonymousWrites(t *testing.T) {
	store := newTestBadgerStore(t)

	require.NoError(t, store.Set("fp-1", "", testVerdict(datatypes.ActionApprove), time.Minute))
	require.NoError(t, store.ClearForUser(""))

	// Anonymous entries carry no user index and are never cleared by user.
	_, found, err := store.Get("fp-1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBadgerStorePersistentRequiresPath(t *testing.T) {
	_, err := NewBadgerStore(BadgerConfig{})
	require.Error(t, err)
}
