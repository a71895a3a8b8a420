// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/gsps-archiver/internal/configtree"
	"github.com/tomtom215/gsps-archiver/internal/dataset"
)

const fill = dataset.FillValue

func testTree() *configtree.Tree {
	return configtree.New(map[string]any{
		"global_attributes": map[string]any{
			"institution": "USF",
			"title":       "Glider data",
			"id":          "overridden",
		},
		"usf-bass": map[string]any{
			"deployment": map[string]any{
				"platform":          map[string]any{"id": "bass"},
				"directory":         "bass",
				"trajectory_id":     1,
				"global_attributes": map[string]any{"title": "Bass deployment"},
			},
		},
	})
}

func fixedClock() time.Time {
	return time.Date(2026, time.March, 5, 7, 8, 9, 0, time.UTC)
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Platform: "usf-bass",
		Times:    []float64{1433160000.9, 1433160060, 1433159990},
		Columns: map[string][]float64{
			"m_lat-lat":      {27.5, fill, 27.7},
			"m_lon-lon":      {fill, -82.5, -82.6},
			"m_depth-m":      {fill, fill, fill},
			"m_water_vx-m/s": {0.1, 0.2, 0.3},
		},
	}
}

func TestMaxExcludingFill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		seed   float64
		want   float64
	}{
		{name: "sentinel larger than all values", values: []float64{1, fill, 3, 2}, seed: 1, want: 3},
		{name: "all fill keeps seed", values: []float64{fill, fill}, seed: -5, want: -5},
		{name: "seed above values", values: []float64{1, 2}, seed: 10, want: 10},
		{name: "negative values", values: []float64{-82.5, fill, -82.1}, seed: -82.5, want: -82.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MaxExcludingFill(tt.values, tt.seed); got != tt.want {
				t.Errorf("MaxExcludingFill = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMinExcludingFill(t *testing.T) {
	t.Parallel()

	if got, ok := MinExcludingFill([]float64{fill, 4, 2, fill}); !ok || got != 2 {
		t.Errorf("MinExcludingFill = %v, %v; want 2, true", got, ok)
	}
	if _, ok := MinExcludingFill([]float64{fill}); ok {
		t.Error("all-fill column should report !ok")
	}
}

func TestGlobalIDAndFilename(t *testing.T) {
	t.Parallel()

	g := NewGenerator(testTree(), WithExtension(".nc"))
	ds := testDataset()

	id, err := g.GlobalID(ds)
	if err != nil {
		t.Fatalf("GlobalID error: %v", err)
	}
	// 1433160000 is 2015-06-01T12:00:00Z; the fraction is truncated.
	if id != "bass_20150601T120000" {
		t.Errorf("GlobalID = %q", id)
	}

	name, err := g.Filename(ds)
	if err != nil {
		t.Fatalf("Filename error: %v", err)
	}
	if name != "usfbass-bass_20150601T120000_rt0.nc" {
		t.Errorf("Filename = %q", name)
	}
}

func TestFilename_SameFirstSecond(t *testing.T) {
	t.Parallel()

	g := NewGenerator(testTree())
	a := &dataset.Dataset{Platform: "usf-bass", Times: []float64{1000.1, 5000}}
	b := &dataset.Dataset{Platform: "usf-bass", Times: []float64{1000.9, 1200, 1300}}

	na, errA := g.Filename(a)
	nb, errB := g.Filename(b)
	if errA != nil || errB != nil {
		t.Fatalf("Filename errors: %v, %v", errA, errB)
	}
	if na != nb {
		t.Errorf("filenames differ: %q vs %q", na, nb)
	}
}

func TestGlobalID_Location(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	g := NewGenerator(testTree(), WithLocation(loc))
	id, err := g.GlobalID(&dataset.Dataset{Platform: "usf-bass", Times: []float64{1433160000}})
	if err != nil {
		t.Fatalf("GlobalID error: %v", err)
	}
	if id != "bass_20150601T070000" {
		t.Errorf("GlobalID = %q", id)
	}
}

func TestGlobalID_Errors(t *testing.T) {
	t.Parallel()

	g := NewGenerator(testTree())
	if _, err := g.GlobalID(&dataset.Dataset{Platform: "usf-bass"}); !errors.Is(err, ErrNoTimes) {
		t.Errorf("empty dataset error = %v", err)
	}
	if _, err := g.GlobalID(&dataset.Dataset{Platform: "ghost", Times: []float64{1}}); !errors.Is(err, configtree.ErrUnknownPlatform) {
		t.Errorf("unknown platform error = %v", err)
	}
}

func TestGeospatialBounds(t *testing.T) {
	t.Parallel()

	b := NewGenerator(testTree()).GeospatialBounds(testDataset())

	want := map[string]any{
		"geospatial_lat_min":           27.5,
		"geospatial_lat_max":           27.7,
		"geospatial_lat_resolution":    "point",
		"geospatial_lat_units":         "degrees_north",
		"geospatial_lon_min":           -82.6,
		"geospatial_lon_max":           -82.5,
		"geospatial_lon_units":         "degrees_east",
		"geospatial_vertical_positive": "down",
	}
	for k, v := range want {
		if b[k] != v {
			t.Errorf("%s = %v, want %v", k, b[k], v)
		}
	}
	if _, ok := b["geospatial_vertical_min"]; ok {
		t.Error("all-fill depth should not produce bounds")
	}
}

func TestGeospatialBounds_NoColumns(t *testing.T) {
	t.Parallel()

	b := NewGenerator(testTree()).GeospatialBounds(&dataset.Dataset{Columns: map[string][]float64{}})
	if len(b) != 1 || b["geospatial_vertical_positive"] != "down" {
		t.Errorf("bounds = %v, want only vertical_positive", b)
	}
}

func TestTemporalBounds(t *testing.T) {
	t.Parallel()

	b := NewGenerator(testTree(), WithClock(fixedClock)).TemporalBounds(testDataset())

	if b["time_coverage_start"] != "2015-06-01T11:59:50Z" {
		t.Errorf("start = %v", b["time_coverage_start"])
	}
	if b["time_coverage_end"] != "2015-06-01T12:01:00Z" {
		t.Errorf("end = %v", b["time_coverage_end"])
	}
	if b["time_coverage_resolution"] != "point" {
		t.Errorf("resolution = %v", b["time_coverage_resolution"])
	}
	if b["history"] != "Created on Thu Mar 05 07:08:09 2026" {
		t.Errorf("history = %v", b["history"])
	}
}

func TestGenerate_MergeOrder(t *testing.T) {
	t.Parallel()

	tree := testTree()
	g := NewGenerator(tree, WithClock(fixedClock))

	attrs, err := g.Generate(testDataset())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if attrs["institution"] != "USF" {
		t.Errorf("institution = %v", attrs["institution"])
	}
	if attrs["title"] != "Bass deployment" {
		t.Errorf("deployment attributes should override globals, title = %v", attrs["title"])
	}
	if attrs["id"] != "bass_20150601T120000" {
		t.Errorf("id = %v, global id must win", attrs["id"])
	}
	if attrs["geospatial_lat_max"] != 27.7 {
		t.Errorf("geospatial_lat_max = %v", attrs["geospatial_lat_max"])
	}

	// The tree is untouched.
	globals := tree.GlobalAttributes()
	if globals["id"] != "overridden" || globals["title"] != "Glider data" {
		t.Errorf("tree mutated: %v", globals)
	}
	if _, ok := globals["history"]; ok {
		t.Error("tree gained generated attributes")
	}

	// Each call gets a fresh map.
	again, _ := g.Generate(testDataset())
	attrs["title"] = "changed"
	if again["title"] != "Bass deployment" {
		t.Error("Generate results share state")
	}
}
