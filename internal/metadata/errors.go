// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package metadata

import "errors"

// ErrNoTimes is returned for datasets without a single row.
var ErrNoTimes = errors.New("dataset has no timestamps")
