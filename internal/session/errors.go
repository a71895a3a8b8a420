// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package session

import (
	"errors"
	"fmt"
)

// ErrUnknownSession is returned when a message references a session key that
// has no open buffer.
var ErrUnknownSession = errors.New("unknown session")

// ErrEmptySession is returned by Finalize for a key with no open buffer.
// It wraps ErrUnknownSession.
var ErrEmptySession = fmt.Errorf("empty session: %w", ErrUnknownSession)

// ErrEmptyDataset is returned by Finalize when the buffer holds no rows.
// The buffer is still removed from the store.
var ErrEmptyDataset = errors.New("empty dataset")
