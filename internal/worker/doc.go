// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

// Package worker provides a bounded, generic worker pool.
//
// A Pool runs a fixed number of goroutines over a fixed-size queue. Two submit
// modes exist:
//
//   - Submit never blocks and returns ErrQueueFull when the queue is at
//     capacity. Background producers (dead-letter replay) use it so they never
//     compete with live traffic for queue space.
//   - SubmitWait blocks until the item is queued, the context ends, or the
//     pool stops. The message router uses it so a full queue stops message
//     acknowledgement and pushes back on the transport.
//
// Stop closes the queue and lets workers drain what is already queued within
// the given timeout.
package worker
