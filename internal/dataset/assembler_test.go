// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package dataset

import (
	"errors"
	"math"
	"testing"

	"github.com/tomtom215/gsps-archiver/internal/session"
)

func scenarioBuffer() *session.Buffer {
	return &session.Buffer{
		Key:      session.NewKey("bass", "T1"),
		Platform: "bass",
		Start:    "T1",
		Headers:  []string{"m_lat-lat", "m_lon-lon"},
		Rows: []session.Row{
			{Timestamp: 1000, Values: map[string]float64{"m_lat-lat": 27.5}},
			{Timestamp: 1001, Values: map[string]float64{"m_lon-lon": -82.5}},
		},
	}
}

func TestAssemble_FillsMissingCells(t *testing.T) {
	t.Parallel()

	ds, err := NewAssembler().Assemble(scenarioBuffer())
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}

	wantTimes := []float64{1000, 1001}
	assertVector(t, "times", ds.Times, wantTimes)
	assertVector(t, "m_lat-lat", ds.Columns["m_lat-lat"], []float64{27.5, FillValue})
	assertVector(t, "m_lon-lon", ds.Columns["m_lon-lon"], []float64{FillValue, -82.5})

	if ds.TimeUV != FillValue {
		t.Errorf("TimeUV = %v, want fill", ds.TimeUV)
	}
	if ds.ProfileIDs != nil {
		t.Errorf("ProfileIDs = %v, want nil without segmenter", ds.ProfileIDs)
	}
}

func TestAssemble_KeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	buf := &session.Buffer{
		Headers: []string{"m_depth-m"},
		Rows: []session.Row{
			{Timestamp: 30, Values: map[string]float64{"m_depth-m": 3}},
			{Timestamp: 10, Values: map[string]float64{"m_depth-m": 1}},
			{Timestamp: 20, Values: map[string]float64{"m_depth-m": 2}},
		},
	}
	ds, err := NewAssembler().Assemble(buf)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	assertVector(t, "times", ds.Times, []float64{30, 10, 20})
	assertVector(t, "m_depth-m", ds.Columns["m_depth-m"], []float64{3, 1, 2})
}

func TestAssemble_Deterministic(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(WithTransforms(GPSInterpolation{}), WithSegmenter(DepthSegmenter{MinDelta: 1}))
	buf := &session.Buffer{
		Headers: []string{"m_gps_lat-lat", "m_gps_lon-lon", "m_depth-m"},
		Rows: []session.Row{
			{Timestamp: 1, Values: map[string]float64{"m_gps_lat-lat": 27.1, "m_gps_lon-lon": -82.1, "m_depth-m": 0}},
			{Timestamp: 2, Values: map[string]float64{"m_depth-m": 10}},
			{Timestamp: 3, Values: map[string]float64{"m_depth-m": 4}},
			{Timestamp: 4, Values: map[string]float64{"m_gps_lat-lat": 27.3, "m_gps_lon-lon": -82.3}},
		},
	}

	a, err := asm.Assemble(buf)
	if err != nil {
		t.Fatalf("first Assemble error: %v", err)
	}
	b, err := asm.Assemble(buf)
	if err != nil {
		t.Fatalf("second Assemble error: %v", err)
	}

	if len(a.ColumnOrder) != len(b.ColumnOrder) {
		t.Fatalf("column order differs: %v vs %v", a.ColumnOrder, b.ColumnOrder)
	}
	for i, name := range a.ColumnOrder {
		if b.ColumnOrder[i] != name {
			t.Fatalf("column order differs at %d: %s vs %s", i, name, b.ColumnOrder[i])
		}
		assertBits(t, name, a.Columns[name], b.Columns[name])
	}
	assertBits(t, "times", a.Times, b.Times)
	assertBits(t, "profiles", a.ProfileIDs, b.ProfileIDs)
}

func TestAssemble_TimeUV(t *testing.T) {
	t.Parallel()

	buf := &session.Buffer{
		Headers: []string{CurrentObservationColumn},
		Rows: []session.Row{
			{Timestamp: 5, Values: map[string]float64{CurrentObservationColumn: 0.1}},
			{Timestamp: 6, Values: map[string]float64{CurrentObservationColumn: 0.2}},
			{Timestamp: 7, Values: map[string]float64{}},
		},
	}
	ds, err := NewAssembler().Assemble(buf)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if ds.TimeUV != 6 {
		t.Errorf("TimeUV = %v, want 6", ds.TimeUV)
	}
}

func TestAssemble_DropsUndeclaredColumns(t *testing.T) {
	t.Parallel()

	buf := &session.Buffer{
		Headers: []string{"m_depth-m"},
		Rows:    []session.Row{{Timestamp: 1, Values: map[string]float64{"m_depth-m": 2, "c_fin-rad": 0.3}}},
	}
	ds, err := NewAssembler().Assemble(buf)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if _, ok := ds.Columns["c_fin-rad"]; ok {
		t.Error("undeclared column kept")
	}
}

type badTransform struct{ n int }

func (badTransform) Name() string { return "bad" }

func (b badTransform) Apply(*Dataset) (map[string][]float64, error) {
	return map[string][]float64{"x-1": make([]float64, b.n)}, nil
}

type failingTransform struct{}

func (failingTransform) Name() string { return "failing" }

func (failingTransform) Apply(*Dataset) (map[string][]float64, error) {
	return nil, errors.New("boom")
}

func TestAssemble_TransformErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		transform Transform
		wantIs    error
	}{
		{name: "length mismatch", transform: badTransform{n: 5}, wantIs: ErrLengthMismatch},
		{name: "apply error", transform: failingTransform{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewAssembler(WithTransforms(tt.transform)).Assemble(scenarioBuffer())
			var te *TransformError
			if !errors.As(err, &te) {
				t.Fatalf("error = %v, want *TransformError", err)
			}
			if te.Transform != tt.transform.Name() {
				t.Errorf("Transform = %q, want %q", te.Transform, tt.transform.Name())
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want wrapping %v", err, tt.wantIs)
			}
		})
	}
}

func TestAssemble_NilBuffer(t *testing.T) {
	t.Parallel()

	if _, err := NewAssembler().Assemble(nil); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("error = %v, want ErrNilBuffer", err)
	}
}

func assertVector(t *testing.T, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len = %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func assertBits(t *testing.T, name string, a, b []float64) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("%s: len %d vs %d", name, len(a), len(b))
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Errorf("%s[%d]: %v vs %v", name, i, a[i], b[i])
		}
	}
}
