// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package dataset

import (
	"math"
)

// Column names consumed and produced by GPSInterpolation.
const (
	GPSLatColumn = "m_gps_lat-lat"
	GPSLonColumn = "m_gps_lon-lon"
	LatColumn    = "lat-lat"
	LonColumn    = "lon-lon"
	DepthColumn  = "m_depth-m"
)

// GPSInterpolation fills every row with a position linearly interpolated over
// time between GPS fixes. Rows before the first fix or after the last take the
// nearest fix. It produces nothing when either GPS column is missing.
type GPSInterpolation struct{}

// Name implements Transform.
func (GPSInterpolation) Name() string { return "gps_interpolation" }

// Apply implements Transform.
func (GPSInterpolation) Apply(ds *Dataset) (map[string][]float64, error) {
	lats, okLat := ds.Column(GPSLatColumn)
	lons, okLon := ds.Column(GPSLonColumn)
	if !okLat || !okLon {
		return nil, nil
	}
	return map[string][]float64{
		LatColumn: interpolate(ds.Times, lats),
		LonColumn: interpolate(ds.Times, lons),
	}, nil
}

// interpolate evaluates the piecewise linear function through the valid
// (time, value) points at every entry of times. With no valid points the
// result is all fill.
func interpolate(times, values []float64) []float64 {
	out := make([]float64, len(times))

	var xs, ys []float64
	for i, v := range values {
		if valid(v) && valid(times[i]) {
			xs = append(xs, times[i])
			ys = append(ys, v)
		}
	}
	if len(xs) == 0 {
		for i := range out {
			out[i] = FillValue
		}
		return out
	}

	// Fixes arrive in time order in practice but nothing guarantees it.
	sortPairs(xs, ys)

	for i, t := range times {
		out[i] = evaluate(xs, ys, t)
	}
	return out
}

func evaluate(xs, ys []float64, t float64) float64 {
	last := len(xs) - 1
	switch {
	case math.IsNaN(t):
		return FillValue
	case t <= xs[0]:
		return ys[0]
	case t >= xs[last]:
		return ys[last]
	}
	// First index with xs[j] >= t.
	lo, hi := 0, last
	for lo < hi {
		mid := (lo + hi) / 2
		if xs[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	j := lo
	if xs[j] == t {
		return ys[j]
	}
	x0, x1 := xs[j-1], xs[j]
	y0, y1 := ys[j-1], ys[j]
	return y0 + (y1-y0)*(t-x0)/(x1-x0)
}

func sortPairs(xs, ys []float64) {
	// Insertion sort keeps equal timestamps in arrival order.
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
			ys[j], ys[j-1] = ys[j-1], ys[j]
		}
	}
}

func valid(v float64) bool {
	return !IsFill(v) && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DepthSegmenter splits a dataset into dive and climb profiles on m_depth-m.
// A new profile starts when the vertical direction reverses after at least
// MinDelta meters of travel. Ids start at 1; rows before the first valid depth
// belong to profile 1.
type DepthSegmenter struct {
	MinDelta float64
}

// Segment implements Segmenter. It returns nil when the depth column is absent.
func (s DepthSegmenter) Segment(ds *Dataset) ([]float64, error) {
	depths, ok := ds.Column(DepthColumn)
	if !ok {
		return nil, nil
	}

	ids := make([]float64, len(depths))
	profile := 1.0
	direction := 0 // 1 descending, -1 ascending
	extreme := math.NaN()

	for i, d := range depths {
		if valid(d) {
			switch {
			case math.IsNaN(extreme):
				extreme = d
			case d == extreme:
			case direction >= 0 && d > extreme:
				direction = 1
				extreme = d
			case direction <= 0 && d < extreme:
				direction = -1
				extreme = d
			case direction == 1 && extreme-d >= s.MinDelta:
				profile++
				direction = -1
				extreme = d
			case direction == -1 && d-extreme >= s.MinDelta:
				profile++
				direction = 1
				extreme = d
			}
		}
		ids[i] = profile
	}
	return ids, nil
}
