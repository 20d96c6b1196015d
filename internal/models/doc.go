// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package models defines the wire-level structures shared by Sentinel's HTTP
handlers.

Every endpoint answers with the same envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2026-01-05T09:00:00Z", "query_time_ms": 3}
	}

or, on failure:

	{
	  "status": "error",
	  "data": null,
	  "metadata": {"timestamp": "2026-01-05T09:00:00Z"},
	  "error": {"code": "VALIDATION_ERROR", "message": "user_id is required"}
	}

Domain types (verdicts, alerts, audit entries) live in package detection and
are embedded in Data as-is.
*/
package models
