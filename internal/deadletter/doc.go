// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package deadletter keeps finalized session buffers whose publish failed so the
dataset is not lost.

Store persists entries in BadgerDB as JSON, one key per entry under the
"dlq:" prefix. Entries carry the complete buffer plus the failing stage, the
last error and an attempt counter.

Replayer periodically resubmits stored entries to the completion pool using a
non-blocking submit, paced by a token bucket, so replay never competes with
live traffic for queue space. An entry is removed by the completion pipeline
once it publishes; entries that reach MaxAttempts stay in the store for
operator inspection through the ops API.
*/
package deadletter
