// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package api provides the operational HTTP surface of the archiver.

Routes:

	GET /healthz                  liveness, always 200 while the process serves
	GET /readyz                   catalog and dead-letter store reachability
	GET /metrics                  Prometheus exposition
	GET /api/v1/datasets          published datasets, newest first (?platform=&limit=)
	GET /api/v1/datasets/{id}     one dataset by global id
	GET /api/v1/deadletters       retained sessions awaiting replay (?limit=)

JSON bodies use the Response envelope:

	{"status":"success","data":...,"metadata":{"timestamp":"..."}}
	{"status":"error","error":{"code":"NOT_FOUND","message":"..."},"metadata":{...}}

The /api/v1 group is rate limited per client IP with go-chi/httprate and
every request is counted through internal/metrics under its chi route
pattern, so path parameters do not explode label cardinality.
*/
package api
