// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides fingerprint-keyed caching of validation
// verdicts.
//
// The cache never decides correctness: a store failure on any path
// degrades to a miss or a no-op, so the pipeline always runs rather
// than surfacing cache errors to callers.
package cache

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// Cache wraps a Store with fingerprinting, TTL policy, and degraded
// error handling.
//
// Thread Safety: This type is safe for concurrent use when the
// underlying Store is.
type Cache struct {
	store        Store
	ttl          time.Duration
	logger       *slog.Logger
	onStoreError func()

	hits        atomic.Int64
	misses      atomic.Int64
	storeErrors atomic.Int64
}

// Option configures optional cache behavior.
type Option func(*Cache)

// WithStoreErrorHook registers fn to be called once per degraded store
// operation, in addition to the internal counter. Used to wire a
// Prometheus counter without coupling this package to metrics.
func WithStoreErrorHook(fn func()) Option {
	return func(c *Cache) { c.onStoreError = fn }
}

// New creates a cache over store with the given entry TTL.
//
// Inputs:
//
//	store - Backing storage. Must not be nil.
//	ttl - How long cached verdicts stay valid. Must be > 0.
//	logger - Destination for degraded-mode warnings. If nil, slog's
//	         default logger is used.
func New(store Store, ttl time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &Cache{store: store, ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) recordStoreError() {
	c.storeErrors.Add(1)
	if c.onStoreError != nil {
		c.onStoreError()
	}
}

// Get looks up the verdict for a (content, context) pair.
//
// Returns the fingerprint in all cases so callers can reuse it for a
// later Set without recomputing. A store error is logged, counted, and
// reported as a miss.
func (c *Cache) Get(content datatypes.ContentItem, vctx datatypes.ValidationContext) (*datatypes.Verdict, string, bool) {
	fingerprint := Fingerprint(content, vctx)

	verdict, found, err := c.store.Get(fingerprint)
	if err != nil {
		c.recordStoreError()
		c.misses.Add(1)
		c.logger.Warn("cache store get failed, treating as miss",
			"fingerprint", fingerprint, "error", err)
		return nil, fingerprint, false
	}
	if !found {
		c.misses.Add(1)
		return nil, fingerprint, false
	}

	c.hits.Add(1)
	verdict.CacheHit = true
	return verdict, fingerprint, true
}

// Set stores a finalized verdict under a previously computed
// fingerprint. Only completed verdicts are cached; timed-out and
// failed runs must re-validate. Store errors degrade to a no-op.
func (c *Cache) Set(fingerprint, userID string, verdict *datatypes.Verdict) {
	if verdict == nil || verdict.Status != datatypes.StatusCompleted {
		return
	}
	if err := c.store.Set(fingerprint, userID, verdict, c.ttl); err != nil {
		c.recordStoreError()
		c.logger.Warn("cache store set failed, verdict not cached",
			"fingerprint", fingerprint, "error", err)
	}
}

// Invalidate drops a single fingerprint. Store errors degrade to a
// no-op.
func (c *Cache) Invalidate(fingerprint string) {
	if err := c.store.Invalidate(fingerprint); err != nil {
		c.recordStoreError()
		c.logger.Warn("cache invalidate failed", "fingerprint", fingerprint, "error", err)
	}
}

// ClearForUser drops every entry written for userID, for use when a
// user's therapeutic profile changes. Store errors degrade to a no-op.
func (c *Cache) ClearForUser(userID string) {
	if err := c.store.ClearForUser(userID); err != nil {
		c.recordStoreError()
		c.logger.Warn("cache clear for user failed", "user_id", userID, "error", err)
	}
}

// Close closes the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Hits returns the total number of cache hits.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses returns the total number of cache misses.
func (c *Cache) Misses() int64 { return c.misses.Load() }

// StoreErrors returns how many store operations failed and degraded.
func (c *Cache) StoreErrors() int64 { return c.storeErrors.Load() }

// HitRate returns the cache hit rate (0.0-1.0). Returns 0 if no
// lookups have been performed.
func (c *Cache) HitRate() float64 {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
