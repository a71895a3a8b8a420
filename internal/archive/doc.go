// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package archive writes assembled datasets into the archive tree.

Publishing is a two-step protocol:

 1. The Encoder writes the dataset to a uniquely named scratch file outside
    the archive tree.
 2. The scratch file is renamed into <root>/<deployment directory>/<filename>.
    When scratch and archive live on different filesystems the file is copied
    to a temporary name in the destination directory, synced, and renamed.

A reader of the archive tree therefore never sees a partial file. Scratch files
are removed on every failure path.

Encoder calls run through a gobreaker circuit breaker: after a run of
consecutive failures the breaker opens and Publish fails fast until the
breaker's timeout elapses.

CBOREncoder is the default Encoder. It writes one deterministic CBOR document
compressed with zstd. Other formats plug in through the Encoder interface.
*/
package archive
