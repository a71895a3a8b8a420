// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package deadletter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metrics"
	"github.com/tomtom215/gsps-archiver/internal/session"
)

const keyPrefix = "dlq:"

// Entry is one failed dataset.
type Entry struct {
	ID            string          `json:"id"`
	Buffer        *session.Buffer `json:"buffer"`
	Stage         string          `json:"stage"`
	LastError     string          `json:"last_error"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
}

// Config configures the badger-backed store.
type Config struct {
	// Path of the badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM (tests and dry runs).
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// EntryTTL expires entries after this long. Zero keeps them forever.
	EntryTTL time.Duration
}

// Store is a badger-backed dead-letter store. It is safe for concurrent use.
type Store struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	closed bool

	// Entries handed to the pool whose outcome is not yet recorded.
	flightMu sync.Mutex
	inflight map[string]struct{}
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Store{db: db, ttl: cfg.EntryTTL, now: time.Now, inflight: make(map[string]struct{})}
	if n, err := s.Count(context.Background()); err == nil {
		metrics.DeadLetterEntries.Set(float64(n))
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Dead-letter store opened")
	return s, nil
}

// Put stores a failed buffer and returns the new entry id.
func (s *Store) Put(ctx context.Context, buf *session.Buffer, stage string, cause error) (string, error) {
	if buf == nil {
		return "", ErrNilBuffer
	}
	if err := s.check(ctx); err != nil {
		return "", err
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Buffer:    buf,
		Stage:     stage,
		CreatedAt: s.now().UTC(),
	}
	if cause != nil {
		entry.LastError = cause.Error()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return s.write(txn, entry)
	})
	if err != nil {
		return "", fmt.Errorf("write dead-letter entry: %w", err)
	}

	metrics.DeadLetterAdded.Inc()
	metrics.DeadLetterEntries.Inc()
	return entry.ID, nil
}

// Get returns the entry for id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var entry *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = read(txn, id)
		return err
	})
	return entry, err
}

// List returns up to limit entries, oldest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping unreadable dead-letter entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list dead-letter entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// MarkAttempt increments the attempt counter of id and stamps LastAttemptAt.
func (s *Store) MarkAttempt(ctx context.Context, id string) (*Entry, error) {
	return s.modify(ctx, id, func(e *Entry) {
		e.Attempts++
		e.LastAttemptAt = s.now().UTC()
	})
}

// RecordFailure stores the outcome of a failed replay and makes id eligible
// for replay again.
func (s *Store) RecordFailure(ctx context.Context, id, stage string, cause error) (*Entry, error) {
	defer s.release(id)
	return s.modify(ctx, id, func(e *Entry) {
		e.Stage = stage
		if cause != nil {
			e.LastError = cause.Error()
		}
	})
}

// Delete removes id. Deleting a missing entry returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	defer s.release(id)
	if err := s.check(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}
	metrics.DeadLetterEntries.Dec()
	return nil
}

// claim marks id as in flight. It reports false if it already was.
func (s *Store) claim(id string) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Store) release(id string) {
	s.flightMu.Lock()
	delete(s.inflight, id)
	s.flightMu.Unlock()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// modify applies fn to id in a read-modify-write transaction, retrying once
// on a conflicting concurrent update.
func (s *Store) modify(ctx context.Context, id string, fn func(*Entry)) (*Entry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var entry *Entry
	update := func(txn *badger.Txn) error {
		var err error
		entry, err = read(txn, id)
		if err != nil {
			return err
		}
		fn(entry)
		return s.write(txn, entry)
	}

	err := s.db.Update(update)
	if errors.Is(err, badger.ErrConflict) {
		err = s.db.Update(update)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) write(txn *badger.Txn, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	e := badger.NewEntry([]byte(keyPrefix+entry.ID), data)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return txn.SetEntry(e)
}

func read(txn *badger.Txn, id string) (*Entry, error) {
	item, err := txn.Get([]byte(keyPrefix + id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var entry Entry
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}
