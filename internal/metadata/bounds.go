// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package metadata

import (
	"github.com/tomtom215/gsps-archiver/internal/dataset"
)

// MinExcludingFill returns the smallest value that is not the fill sentinel.
// ok is false when every value is fill.
func MinExcludingFill(values []float64) (minimum float64, ok bool) {
	for _, v := range values {
		if dataset.IsFill(v) {
			continue
		}
		if !ok || v < minimum {
			minimum = v
			ok = true
		}
	}
	return minimum, ok
}

// MaxExcludingFill scans values for the largest non-fill entry, starting from
// seed. A sentinel larger than every real value is never returned.
func MaxExcludingFill(values []float64, seed float64) float64 {
	maximum := seed
	for _, v := range values {
		if !dataset.IsFill(v) && v > maximum {
			maximum = v
		}
	}
	return maximum
}

// boundRole ties a dataset column to its geospatial attribute prefix.
type boundRole struct {
	column string
	prefix string
	units  string
}

var boundRoles = []boundRole{
	{column: "m_lat-lat", prefix: "geospatial_lat", units: "degrees_north"},
	{column: "m_lon-lon", prefix: "geospatial_lon", units: "degrees_east"},
	{column: dataset.DepthColumn, prefix: "geospatial_vertical", units: "meters"},
}
