// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package archive

import (
	"context"
)

// File is everything an Encoder receives for one dataset.
type File struct {
	GlobalAttributes map[string]any       `cbor:"global_attributes" json:"global_attributes"`
	Platform         map[string]any       `cbor:"platform" json:"platform"`
	TrajectoryID     any                  `cbor:"trajectory_id" json:"trajectory_id"`
	SegmentID        string               `cbor:"segment_id" json:"segment_id"`
	Datatypes        any                  `cbor:"datatypes" json:"datatypes"`
	Instruments      any                  `cbor:"instruments" json:"instruments"`
	Times            []float64            `cbor:"time" json:"time"`
	TimeUV           float64              `cbor:"time_uv" json:"time_uv"`
	ProfileIDs       []float64            `cbor:"profile_id,omitempty" json:"profile_id,omitempty"`
	ColumnOrder      []string             `cbor:"column_order" json:"column_order"`
	Columns          map[string][]float64 `cbor:"columns" json:"columns"`
}

// Encoder writes a File to path. Implementations must leave no usable file
// at path when they return an error.
type Encoder interface {
	// Extension is appended to archive file names, including the dot.
	Extension() string
	Encode(ctx context.Context, path string, f *File) error
}
