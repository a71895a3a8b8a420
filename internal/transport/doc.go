// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package transport connects the archiver to the GSPS publication stream.

GSPS publishes one JSON document per NATS message. The subscriber built here
delivers those payloads unchanged as Watermill messages, one at a time, so the
ingest router observes them in publication order. Core NATS is the default;
JetStream can be enabled when durable delivery across restarts is needed.

An embedded nats-server is provided for development and tests.
*/
package transport
