// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package dataset

import (
	"errors"
	"fmt"
)

// ErrNilBuffer is returned when Assemble is called without a buffer.
var ErrNilBuffer = errors.New("nil session buffer")

// TransformError reports a failing or misbehaving transform.
type TransformError struct {
	Transform string
	Err       error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Transform, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// ErrLengthMismatch is wrapped when a derived vector does not match the time vector.
var ErrLengthMismatch = errors.New("vector length does not match time vector")
