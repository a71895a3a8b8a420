// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package session

import (
	"sort"
	"time"
)

// Store maps session keys to open buffers.
//
// Store is not safe for concurrent use.
type Store struct {
	buffers map[Key]*Buffer
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for OpenedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCorrelationIDs sets the generator used to tag each new buffer.
func WithCorrelationIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		buffers: make(map[Key]*Buffer),
		now:     time.Now,
		newID:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin opens a new empty buffer for key. A buffer already open under the same
// key is discarded with all its rows (last write wins); replaced reports
// whether that happened.
func (s *Store) Begin(key Key, platform, start, segment string, headers []string) (replaced bool) {
	_, replaced = s.buffers[key]

	now := s.now()
	s.buffers[key] = &Buffer{
		Key:           key,
		Platform:      platform,
		Start:         start,
		Segment:       segment,
		Headers:       append([]string(nil), headers...),
		CorrelationID: s.newID(),
		OpenedAt:      now,
		UpdatedAt:     now,
	}
	return replaced
}

// Append adds row to the buffer for key. Rows are stored verbatim; columns not
// declared in the headers are dropped later, at assembly.
func (s *Store) Append(key Key, row Row) error {
	buf, ok := s.buffers[key]
	if !ok {
		return ErrUnknownSession
	}
	buf.Rows = append(buf.Rows, row)
	buf.UpdatedAt = s.now()
	return nil
}

// Finalize removes the buffer for key and transfers its ownership to the caller.
func (s *Store) Finalize(key Key) (*Buffer, error) {
	buf, ok := s.buffers[key]
	if !ok {
		return nil, ErrEmptySession
	}
	delete(s.buffers, key)

	if len(buf.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return buf, nil
}

// Get returns the open buffer for key without removing it.
func (s *Store) Get(key Key) (*Buffer, bool) {
	buf, ok := s.buffers[key]
	return buf, ok
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	return len(s.buffers)
}

// Expire removes and returns every buffer not updated since cutoff, oldest first.
func (s *Store) Expire(cutoff time.Time) []*Buffer {
	var expired []*Buffer
	for key, buf := range s.buffers {
		if buf.UpdatedAt.Before(cutoff) {
			expired = append(expired, buf)
			delete(s.buffers, key)
		}
	}
	sortByOpened(expired)
	return expired
}

// Drain removes and returns all open buffers, oldest first. Used on shutdown.
func (s *Store) Drain() []*Buffer {
	drained := make([]*Buffer, 0, len(s.buffers))
	for _, buf := range s.buffers {
		drained = append(drained, buf)
	}
	s.buffers = make(map[Key]*Buffer)
	sortByOpened(drained)
	return drained
}

func sortByOpened(bufs []*Buffer) {
	sort.Slice(bufs, func(i, j int) bool {
		if bufs[i].OpenedAt.Equal(bufs[j].OpenedAt) {
			return bufs[i].Key < bufs[j].Key
		}
		return bufs[i].OpenedAt.Before(bufs[j].OpenedAt)
	})
}
