// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

// Package session holds in-flight glider datasets between their start and
// end messages.
//
// A session is opened by a start message, grows by one [Row] per data
// message and is handed off exactly once by [Store.Finalize]. The [Store] is
// deliberately not synchronized: the ingest router is its only reader and
// writer, and Finalize is the single point where a [Buffer] leaves it.
package session
