// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package metrics defines the Prometheus metrics exported on /metrics.

All metrics are registered on the default registry through promauto and are
safe for concurrent use. Helpers named Record* keep label values consistent
across callers.

Metric families:

  - gsps_messages_*: transport messages by type, decode failures, poison forwards
  - gsps_sessions_*: open, replaced, expired, abandoned and completed sessions
  - gsps_publish_*: publish latency and failures by stage, breaker state
  - gsps_deadletter_*: stored entries and replay outcomes
  - gsps_catalog_*: DuckDB catalog query latency and errors
  - gsps_api_*: ops API requests

Worker pool metrics are registered by the pool itself (see internal/worker).
*/
package metrics
