// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package deadletter

import "errors"

var (
	// ErrNotFound is returned when no entry exists for an id.
	ErrNotFound = errors.New("dead-letter entry not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dead-letter store closed")

	// ErrNilBuffer is returned when Put is called without a buffer.
	ErrNilBuffer = errors.New("dead-letter entry requires a buffer")
)
