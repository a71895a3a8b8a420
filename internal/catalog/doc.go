// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

// Package catalog records every published dataset in a DuckDB table so the
// ops API can answer "what has been archived for this glider" without walking
// the archive tree.
//
// The catalog is an index, not the archive: losing it loses nothing that is
// not also on disk, and a failed catalog write never fails a publish.
package catalog
