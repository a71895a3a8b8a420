// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package dataset converts finalized session buffers into dense, aligned column
vectors.

Assembly is a pure function of the buffer: the time vector keeps arrival order,
every declared header gets a value vector of the same length, and cells a row
did not populate hold FillValue.

Scientific derivations are plugged in through two contracts:

  - Transform returns synthetic columns (for example interpolated positions)
    that are merged into the column map under their own names.
  - Segmenter returns one profile id per row.

GPSInterpolation is the only transform shipped with the archiver. DepthSegmenter
is a simple dive/climb splitter on m_depth-m.

Example:

	asm := dataset.NewAssembler(
	    dataset.WithTransforms(dataset.GPSInterpolation{}),
	    dataset.WithSegmenter(dataset.DepthSegmenter{MinDelta: 1}),
	)
	ds, err := asm.Assemble(buf)
*/
package dataset
