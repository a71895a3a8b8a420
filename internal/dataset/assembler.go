// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package dataset

import (
	"fmt"

	"github.com/tomtom215/gsps-archiver/internal/session"
)

// Assembler turns finalized buffers into datasets.
// An Assembler is immutable after construction and safe for concurrent use.
type Assembler struct {
	transforms []Transform
	segmenter  Segmenter
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTransforms appends transforms, run in the given order.
func WithTransforms(t ...Transform) AssemblerOption {
	return func(a *Assembler) { a.transforms = append(a.transforms, t...) }
}

// WithSegmenter sets the profile segmenter.
func WithSegmenter(s Segmenter) AssemblerOption {
	return func(a *Assembler) { a.segmenter = s }
}

// NewAssembler creates an Assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds a Dataset from buf. The buffer is only read.
//
// Transforms see the dataset as produced by the transforms before them. A
// transform returning an existing column name overwrites that column.
func (a *Assembler) Assemble(buf *session.Buffer) (*Dataset, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	ds := fromBuffer(buf)
	n := ds.Len()

	for _, t := range a.transforms {
		cols, err := t.Apply(ds)
		if err != nil {
			return nil, &TransformError{Transform: t.Name(), Err: err}
		}
		for _, name := range sortedKeys(cols) {
			v := cols[name]
			if len(v) != n {
				return nil, &TransformError{
					Transform: t.Name(),
					Err:       fmt.Errorf("column %s has %d values, want %d: %w", name, len(v), n, ErrLengthMismatch),
				}
			}
			if _, exists := ds.Columns[name]; !exists {
				ds.ColumnOrder = append(ds.ColumnOrder, name)
			}
			ds.Columns[name] = v
		}
	}

	if a.segmenter != nil {
		ids, err := a.segmenter.Segment(ds)
		if err != nil {
			return nil, &TransformError{Transform: "segmenter", Err: err}
		}
		if ids != nil && len(ids) != n {
			return nil, &TransformError{
				Transform: "segmenter",
				Err:       fmt.Errorf("%d profile ids, want %d: %w", len(ids), n, ErrLengthMismatch),
			}
		}
		ds.ProfileIDs = ids
	}

	return ds, nil
}
