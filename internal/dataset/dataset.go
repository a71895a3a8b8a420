// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package dataset

import (
	"sort"

	"github.com/tomtom215/gsps-archiver/internal/session"
)

// FillValue marks a missing cell. It is the netCDF default fill for 8-byte floats.
const FillValue = 9.969209968386869e36

// CurrentObservationColumn is the column whose most recent row timestamp
// becomes Dataset.TimeUV.
const CurrentObservationColumn = "m_water_vx-m/s"

// Dataset is an assembled, immutable view of one finalized session.
type Dataset struct {
	Platform      string
	Segment       string
	CorrelationID string

	// Times holds one timestamp per row in arrival order. It is never sorted.
	Times []float64

	// Columns maps column name (name-units) to a vector aligned with Times.
	Columns map[string][]float64

	// ColumnOrder lists declared headers first, then synthetic columns in
	// the order transforms produced them.
	ColumnOrder []string

	// TimeUV is the timestamp of the last row carrying
	// CurrentObservationColumn, or FillValue.
	TimeUV float64

	// ProfileIDs is produced by the segmenter; nil when none is configured.
	ProfileIDs []float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Times)
}

// Column returns the vector for name.
func (d *Dataset) Column(name string) ([]float64, bool) {
	v, ok := d.Columns[name]
	return v, ok
}

// IsFill reports whether v is the fill sentinel.
func IsFill(v float64) bool {
	return v == FillValue
}

// Transform derives synthetic columns from an assembled dataset.
// Every returned vector must have exactly ds.Len() entries.
type Transform interface {
	Name() string
	Apply(ds *Dataset) (map[string][]float64, error)
}

// Segmenter assigns a profile id to each row.
type Segmenter interface {
	Segment(ds *Dataset) ([]float64, error)
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fromBuffer builds the aligned vectors without running any transform.
func fromBuffer(buf *session.Buffer) *Dataset {
	n := len(buf.Rows)
	ds := &Dataset{
		Platform:      buf.Platform,
		Segment:       buf.Segment,
		CorrelationID: buf.CorrelationID,
		Times:         make([]float64, n),
		Columns:       make(map[string][]float64, len(buf.Headers)),
		ColumnOrder:   make([]string, 0, len(buf.Headers)),
		TimeUV:        FillValue,
	}

	for _, h := range buf.Headers {
		if _, dup := ds.Columns[h]; dup {
			continue
		}
		ds.Columns[h] = make([]float64, n)
		ds.ColumnOrder = append(ds.ColumnOrder, h)
	}

	for i, row := range buf.Rows {
		ds.Times[i] = row.Timestamp
		for _, h := range ds.ColumnOrder {
			v, ok := row.Values[h]
			if !ok {
				v = FillValue
			}
			ds.Columns[h][i] = v
		}
		if _, ok := row.Values[CurrentObservationColumn]; ok {
			ds.TimeUV = row.Timestamp
		}
	}
	return ds
}
