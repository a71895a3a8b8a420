// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package session

import (
	"errors"
	"testing"
	"time"
)

func TestNewKey(t *testing.T) {
	t.Parallel()

	if got := NewKey("bass", "T1"); got != "bass-T1" {
		t.Errorf("NewKey = %q, want %q", got, "bass-T1")
	}

	// Same start token on two platforms must never collide.
	a := NewKey("usf-bass", "2015-06-01T00:00:00")
	b := NewKey("usf-sam", "2015-06-01T00:00:00")
	if a == b {
		t.Errorf("keys collide for different platforms: %q", a)
	}
}

func TestStore_BeginAppendFinalize(t *testing.T) {
	t.Parallel()

	store := NewStore(WithCorrelationIDs(func() string { return "cid00001" }))
	key := NewKey("bass", "T1")

	if replaced := store.Begin(key, "bass", "T1", "7", []string{"m_lat-lat", "m_lon-lon"}); replaced {
		t.Error("first Begin should not report a replacement")
	}
	if err := store.Append(key, Row{Timestamp: 1000, Values: map[string]float64{"m_lat-lat": 27.5}}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := store.Append(key, Row{Timestamp: 1001, Values: map[string]float64{"m_lon-lon": -82.5}}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	buf, err := store.Finalize(key)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(buf.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(buf.Rows))
	}
	if buf.Segment != "7" || buf.Platform != "bass" {
		t.Errorf("unexpected buffer identity: %+v", buf)
	}
	if buf.CorrelationID != "cid00001" {
		t.Errorf("CorrelationID = %q, want cid00001", buf.CorrelationID)
	}
	if store.Len() != 0 {
		t.Errorf("store should be empty after Finalize, len = %d", store.Len())
	}

	// The buffer is gone: a second finalize is a no-op.
	if _, err := store.Finalize(key); !errors.Is(err, ErrEmptySession) {
		t.Errorf("second Finalize error = %v, want ErrEmptySession", err)
	}
}

func TestStore_AppendUnknownSession(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Begin(NewKey("bass", "T1"), "bass", "T1", "", nil)

	err := store.Append(NewKey("bass", "T2"), Row{Timestamp: 1})
	if !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Append error = %v, want ErrUnknownSession", err)
	}
	if store.Len() != 1 {
		t.Errorf("store size changed: %d", store.Len())
	}
	buf, _ := store.Get(NewKey("bass", "T1"))
	if len(buf.Rows) != 0 {
		t.Errorf("unrelated buffer modified: %d rows", len(buf.Rows))
	}
}

func TestStore_FinalizeEmptyDataset(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := NewKey("bass", "T1")
	store.Begin(key, "bass", "T1", "", []string{"m_depth-m"})

	buf, err := store.Finalize(key)
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("Finalize error = %v, want ErrEmptyDataset", err)
	}
	if buf != nil {
		t.Error("empty dataset must not hand out a buffer")
	}
	if store.Len() != 0 {
		t.Error("empty buffer must still be removed")
	}
}

func TestStore_FinalizeUnknownIsUnknownSession(t *testing.T) {
	t.Parallel()

	_, err := NewStore().Finalize("nobody-T0")
	if !errors.Is(err, ErrEmptySession) || !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Finalize error = %v, want ErrEmptySession wrapping ErrUnknownSession", err)
	}
}

func TestStore_DuplicateBeginDiscardsRows(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := NewKey("bass", "T1")
	store.Begin(key, "bass", "T1", "1", []string{"m_lat-lat"})
	_ = store.Append(key, Row{Timestamp: 10, Values: map[string]float64{"m_lat-lat": 1}})
	_ = store.Append(key, Row{Timestamp: 11, Values: map[string]float64{"m_lat-lat": 2}})

	if replaced := store.Begin(key, "bass", "T1", "2", []string{"m_lon-lon"}); !replaced {
		t.Error("second Begin should report a replacement")
	}
	_ = store.Append(key, Row{Timestamp: 20, Values: map[string]float64{"m_lon-lon": 3}})

	buf, err := store.Finalize(key)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if len(buf.Rows) != 1 || buf.Rows[0].Timestamp != 20 {
		t.Errorf("rows from the first start leaked: %+v", buf.Rows)
	}
	if buf.Segment != "2" || len(buf.Headers) != 1 || buf.Headers[0] != "m_lon-lon" {
		t.Errorf("buffer not reset to second start: %+v", buf)
	}
}

func TestStore_Expire(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewStore(WithClock(clock))

	store.Begin("old-1", "old", "1", "", nil)
	now = now.Add(2 * time.Hour)
	store.Begin("new-1", "new", "1", "", nil)

	expired := store.Expire(now.Add(-time.Hour))
	if len(expired) != 1 || expired[0].Key != "old-1" {
		t.Fatalf("Expire = %+v, want only old-1", expired)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestStore_Drain(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Begin("b-1", "b", "1", "", nil)
	store.Begin("a-1", "a", "1", "", nil)

	drained := store.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain returned %d buffers, want 2", len(drained))
	}
	if store.Len() != 0 {
		t.Error("store not empty after Drain")
	}
}

func TestBuffer_Clone(t *testing.T) {
	t.Parallel()

	buf := &Buffer{
		Headers: []string{"m_depth-m"},
		Rows:    []Row{{Timestamp: 1, Values: map[string]float64{"m_depth-m": 5}}},
	}
	c := buf.Clone()
	c.Rows[0].Values["m_depth-m"] = 99
	c.Headers[0] = "changed"

	if buf.Rows[0].Values["m_depth-m"] != 5 || buf.Headers[0] != "m_depth-m" {
		t.Error("Clone shares state with the original")
	}
}
