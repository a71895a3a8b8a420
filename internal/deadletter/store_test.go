// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package deadletter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/gsps-archiver/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testBuffer(start string) *session.Buffer {
	return &session.Buffer{
		Key:      session.NewKey("bass", start),
		Platform: "bass",
		Start:    start,
		Headers:  []string{"m_depth-m"},
		Rows:     []session.Row{{Timestamp: 1000, Values: map[string]float64{"m_depth-m": 4.5}}},
	}
}

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Put(ctx, testBuffer("T1"), "encode", errors.New("disk full"))
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if entry.Stage != "encode" || entry.LastError != "disk full" || entry.Attempts != 0 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Buffer.Key != "bass-T1" || len(entry.Buffer.Rows) != 1 || entry.Buffer.Rows[0].Values["m_depth-m"] != 4.5 {
		t.Errorf("buffer not round-tripped: %+v", entry.Buffer)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
	if _, err := s.Put(ctx, nil, "encode", nil); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("Put nil = %v, want ErrNilBuffer", err)
	}
}

func TestStore_ListOrderAndLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, start := range []string{"T3", "T1", "T2"} {
		offset := time.Duration(i) * time.Minute
		s.now = func() time.Time { return base.Add(offset) }
		if _, err := s.Put(ctx, testBuffer(start), "move", nil); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List = %d entries, want 3", len(all))
	}
	for i, want := range []string{"T3", "T1", "T2"} {
		if all[i].Buffer.Start != want {
			t.Errorf("List[%d] = %s, want %s (oldest first)", i, all[i].Buffer.Start, want)
		}
	}

	limited, _ := s.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("List(2) = %d entries", len(limited))
	}

	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestStore_AttemptsAndFailures(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	id, _ := s.Put(ctx, testBuffer("T1"), "encode", errors.New("first"))

	if _, err := s.MarkAttempt(ctx, id); err != nil {
		t.Fatalf("MarkAttempt error: %v", err)
	}
	entry, err := s.RecordFailure(ctx, id, "move", errors.New("second"))
	if err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}
	if entry.Attempts != 1 || entry.Stage != "move" || entry.LastError != "second" || entry.LastAttemptAt.IsZero() {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := s.MarkAttempt(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkAttempt missing = %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	id, _ := s.Put(ctx, testBuffer("T1"), "encode", nil)

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count = %d after delete", n)
	}
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()

	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := s.List(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("List after Close = %v, want ErrClosed", err)
	}
}

func TestStore_Persistent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	id, _ := s.Put(context.Background(), testBuffer("T1"), "encode", nil)
	_ = s.Close()

	s, err = Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), id); err != nil {
		t.Errorf("entry lost across reopen: %v", err)
	}
}
