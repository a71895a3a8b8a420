// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func float(v float64) *float64 { return &v }

func sampleDataset(id, platform string, start float64) Dataset {
	return Dataset{
		GlobalID:    id,
		Platform:    platform,
		Segment:     "7",
		Path:        "/archive/" + platform + "/" + id + ".cbor.zst",
		Rows:        2,
		TimeStart:   start,
		TimeEnd:     start + 1,
		LatMin:      float(27.5),
		LatMax:      float(27.5),
		PublishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCatalog_RecordGet(t *testing.T) {
	t.Parallel()

	c := openTestCatalog(t)
	ctx := context.Background()

	want := sampleDataset("bass_19700101T001640", "bass", 1000)
	if err := c.Record(ctx, want); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	got, err := c.Get(ctx, want.GlobalID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Platform != "bass" || got.Rows != 2 || got.TimeStart != 1000 || got.Path != want.Path {
		t.Errorf("Get = %+v", got)
	}
	if got.LatMin == nil || *got.LatMin != 27.5 {
		t.Errorf("LatMin = %v", got.LatMin)
	}
	if got.LonMin != nil || got.DepthMax != nil {
		t.Errorf("absent bounds should be nil: lon=%v depth=%v", got.LonMin, got.DepthMax)
	}
	if !got.PublishedAt.Equal(want.PublishedAt) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, want.PublishedAt)
	}

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestCatalog_RecordReplaces(t *testing.T) {
	t.Parallel()

	c := openTestCatalog(t)
	ctx := context.Background()

	d := sampleDataset("bass_1", "bass", 1000)
	_ = c.Record(ctx, d)
	d.Rows = 10
	if err := c.Record(ctx, d); err != nil {
		t.Fatalf("second Record error: %v", err)
	}

	if n, _ := c.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	got, _ := c.Get(ctx, "bass_1")
	if got.Rows != 10 {
		t.Errorf("Rows = %d, want 10", got.Rows)
	}
}

func TestCatalog_List(t *testing.T) {
	t.Parallel()

	c := openTestCatalog(t)
	ctx := context.Background()
	for _, d := range []Dataset{
		sampleDataset("bass_1", "bass", 1000),
		sampleDataset("bass_2", "bass", 3000),
		sampleDataset("sam_1", "sam", 2000),
	} {
		if err := c.Record(ctx, d); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all newest first", filter: Filter{}, want: []string{"bass_2", "sam_1", "bass_1"}},
		{name: "by platform", filter: Filter{Platform: "bass"}, want: []string{"bass_2", "bass_1"}},
		{name: "limit", filter: Filter{Limit: 1}, want: []string{"bass_2"}},
		{name: "unknown platform", filter: Filter{Platform: "nobody"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List = %d rows, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].GlobalID != id {
					t.Errorf("List[%d] = %s, want %s", i, got[i].GlobalID, id)
				}
			}
		})
	}
}

func TestCatalog_FileBacked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "catalog.duckdb")
	c, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	_ = c.Record(context.Background(), sampleDataset("bass_1", "bass", 1000))
	_ = c.Close()

	c, err = Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer c.Close()
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping error: %v", err)
	}
	if _, err := c.Get(context.Background(), "bass_1"); err != nil {
		t.Errorf("row lost across reopen: %v", err)
	}
}
