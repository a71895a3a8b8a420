// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package services provides suture.Service wrappers for archiver components.

Each wrapper implements suture.Service and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

  - IngestService subscribes to the GSPS subject and runs the message
    router over the subscription. It returns an error when the transport
    fails so the supervisor restarts it.
  - ReplayService runs the dead-letter replayer loop.
  - HTTPServerService runs the operations HTTP server with graceful shutdown.

Every wrapper returns ctx.Err() after a requested shutdown, which suture
treats as a clean stop.
*/
package services
