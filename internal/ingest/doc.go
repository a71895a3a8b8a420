// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package ingest turns the GSPS message stream into published archive files.

The Router consumes transport messages on a single goroutine, decodes each
payload into a StartMessage, DataMessage, EndMessage or UnknownMessage and
applies it to the session store it owns. When an end message finalizes a
session, the buffer is handed to a bounded worker pool as a Completion. A full
queue blocks the Router, which stops acking and pushes back on the transport.

The Pipeline runs on the pool workers: assemble, generate metadata, encode and
publish, then record the result in the catalog. A failed session is retained
in the dead-letter store and replayed later.

Message Flow:

	NATS -> Router -> session.Store -> (end) -> worker.Pool -> Pipeline
	                                                            |
	                              archive.Publisher <-----------+
	                              catalog.Catalog / deadletter.Store
*/
package ingest
