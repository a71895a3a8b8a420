// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package supervisor provides process supervision for the archiver using suture v4.

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("gsps-archiver")
	├── IngestSupervisor ("ingest-layer")
	│   └── IngestService (NATS subscription + router)
	├── StorageSupervisor ("storage-layer")
	│   └── ReplayService (dead-letter replay)
	└── OpsSupervisor ("ops-layer")
	    └── HTTPServerService (health, metrics, catalog API)

A transport failure ends the ingest service with an error. The supervisor
restarts it with backoff, and the router keeps its open sessions across the
restart. A failing ops server never interrupts ingestion.

Events (restarts, backoff, timeouts) are logged through sutureslog, which
writes to the zerolog-backed slog handler from package logging.

The completion worker pool is not a supervised service: it is started before
the tree and stopped after the tree returns, so queued datasets drain after
ingestion stops.
*/
package supervisor
