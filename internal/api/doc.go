// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package api exposes the detection engine over HTTP using the chi router.

Routes (all under /api/v1):

	GET  /health/live                 liveness probe
	GET  /health/ready                readiness probe (pings DuckDB)
	POST /check-log                   score a login event, returns a verdict
	POST /audit-events                record an audit log entry
	GET  /alerts                      list alerts (user_id, acknowledged, limit, offset)
	GET  /alerts/{id}                 alert detail joined with its audit entry
	POST /alerts/{id}/acknowledge     mark an alert as seen
	PUT  /users/{id}/push-token       register or clear a push token

Prometheus metrics are served at /metrics.

Middleware order: request id, real ip, panic recovery, CORS, then per-group
rate limiting, security headers, metrics and bearer authentication. Health
probes and /metrics are not authenticated.

Every JSON response uses models.APIResponse.
*/
package api
