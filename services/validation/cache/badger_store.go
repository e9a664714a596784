// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

const (
	verdictPrefix = "v/"
	userPrefix    = "u/"
)

// BadgerConfig holds configuration for the persistent store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults for a persistent
// verdict store.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns configuration optimized for testing.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore persists verdicts in an embedded BadgerDB.
//
// Description:
//
//	Verdicts are stored JSON-encoded under "v/<fingerprint>" with a
//	native Badger TTL. Each write for a non-empty user id also writes
//	an index key "u/<userID>/<fingerprint>" so ClearForUser can walk
//	that prefix instead of scanning the whole keyspace. Expired keys
//	disappear on read, so Get never returns stale verdicts.
//
// Thread Safety: This type is safe for concurrent use.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerDB-backed store with the given
// configuration. Caller must call Close when done.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the cached verdict for fingerprint if present and fresh.
func (s *BadgerStore) Get(fingerprint string) (*datatypes.Verdict, bool, error) {
	var verdict *datatypes.Verdict
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(verdictKey(fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v := &datatypes.Verdict{}
			if err := json.Unmarshal(val, v); err != nil {
				return err
			}
			verdict = v
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return verdict, true, nil
}

// Set stores a verdict with the given TTL.
func (s *BadgerStore) Set(fingerprint, userID string, verdict *datatypes.Verdict, ttl time.Duration) error {
	if verdict == nil || ttl <= 0 {
		return nil
	}

	encoded, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(verdictKey(fingerprint), encoded).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		if userID != "" {
			index := badger.NewEntry(userKey(userID, fingerprint), nil).WithTTL(ttl)
			return txn.SetEntry(index)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Invalidate removes a single fingerprint if present.
func (s *BadgerStore) Invalidate(fingerprint string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(verdictKey(fingerprint))
	})
	if err != nil {
		return fmt.Errorf("badger invalidate: %w", err)
	}
	return nil
}

// ClearForUser removes every verdict written for userID.
func (s *BadgerStore) ClearForUser(userID string) error {
	if userID == "" {
		return nil
	}

	prefix := []byte(userPrefix + userID + "/")
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			indexKey := it.Item().KeyCopy(nil)
			fingerprint := string(indexKey[len(prefix):])
			if err := txn.Delete(verdictKey(fingerprint)); err != nil {
				return err
			}
			if err := txn.Delete(indexKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger clear for user: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func verdictKey(fingerprint string) []byte {
	return []byte(verdictPrefix + fingerprint)
}

func userKey(userID, fingerprint string) []byte {
	return []byte(userPrefix + userID + "/" + fingerprint)
}
