// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// Store is the backing storage for cached verdicts.
//
// Description:
//
//	Implementations map fingerprints to verdicts with TTL expiration.
//	Get returns (nil, false, nil) for a miss; an error indicates the
//	store itself failed, which callers treat as a miss. ClearForUser
//	removes every entry written on behalf of the given user so a
//	profile change cannot serve stale verdicts.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Store interface {
	Get(fingerprint string) (*datatypes.Verdict, bool, error)
	Set(fingerprint, userID string, verdict *datatypes.Verdict, ttl time.Duration) error
	Invalidate(fingerprint string) error
	ClearForUser(userID string) error
	Close() error
}

// MemoryStore is an in-process LRU store with TTL expiration.
//
// Description:
//
//	Entries are evicted least-recently-used when at capacity and
//	lazily on expired reads. A secondary index maps user ids to the
//	fingerprints written for them so ClearForUser is O(entries for
//	that user) rather than a full scan. Verdicts are deep-copied on
//	both Set and Get so callers cannot mutate cached state.
//
// Thread Safety: This type is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	byUser  map[string]map[string]struct{}
	maxSize int
}

type storeEntry struct {
	fingerprint string
	userID      string
	verdict     *datatypes.Verdict
	expiresAt   time.Time
}

// NewMemoryStore creates a store holding at most maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &MemoryStore{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		byUser:  make(map[string]map[string]struct{}),
		maxSize: maxSize,
	}
}

// Get returns the cached verdict for fingerprint if present and fresh.
func (s *MemoryStore) Get(fingerprint string) (*datatypes.Verdict, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.entries[fingerprint]
	if !exists {
		return nil, false, nil
	}

	entry := elem.Value.(*storeEntry)
	if time.Now().After(entry.expiresAt) {
		// Expired - remove lazily
		s.removeElement(elem)
		return nil, false, nil
	}

	s.lru.MoveToFront(elem)
	return entry.verdict.Clone(), true, nil
}

// Set stores a verdict, evicting the least recently used entry when at
// capacity.
func (s *MemoryStore) Set(fingerprint, userID string, verdict *datatypes.Verdict, ttl time.Duration) error {
	if verdict == nil || ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := verdict.Clone()
	expiresAt := time.Now().Add(ttl)

	if elem, exists := s.entries[fingerprint]; exists {
		entry := elem.Value.(*storeEntry)
		s.unindexUser(entry.userID, fingerprint)
		entry.userID = userID
		entry.verdict = stored
		entry.expiresAt = expiresAt
		s.indexUser(userID, fingerprint)
		s.lru.MoveToFront(elem)
		return nil
	}

	for s.lru.Len() >= s.maxSize {
		s.evictOldest()
	}

	entry := &storeEntry{
		fingerprint: fingerprint,
		userID:      userID,
		verdict:     stored,
		expiresAt:   expiresAt,
	}
	s.entries[fingerprint] = s.lru.PushFront(entry)
	s.indexUser(userID, fingerprint)
	return nil
}

// Invalidate removes a single fingerprint if present.
func (s *MemoryStore) Invalidate(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.entries[fingerprint]; exists {
		s.removeElement(elem)
	}
	return nil
}

// ClearForUser removes every entry written for userID.
func (s *MemoryStore) ClearForUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fingerprint := range s.byUser[userID] {
		if elem, exists := s.entries[fingerprint]; exists {
			s.removeElement(elem)
		}
	}
	delete(s.byUser, userID)
	return nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Size returns the current number of entries.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (s *MemoryStore) evictOldest() {
	if elem := s.lru.Back(); elem != nil {
		s.removeElement(elem)
	}
}

// removeElement removes an element from the map, the list, and the
// user index. Must be called with lock held.
func (s *MemoryStore) removeElement(elem *list.Element) {
	entry := elem.Value.(*storeEntry)
	delete(s.entries, entry.fingerprint)
	s.unindexUser(entry.userID, entry.fingerprint)
	s.lru.Remove(elem)
}

func (s *MemoryStore) indexUser(userID, fingerprint string) {
	if userID == "" {
		return
	}
	set, ok := s.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		s.byUser[userID] = set
	}
	set[fingerprint] = struct{}{}
}

func (s *MemoryStore) unindexUser(userID, fingerprint string) {
	if userID == "" {
		return
	}
	if set, ok := s.byUser[userID]; ok {
		delete(set, fingerprint)
		if len(set) == 0 {
			delete(s.byUser, userID)
		}
	}
}
