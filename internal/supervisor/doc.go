// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package supervisor runs Sentinel's long-lived services under suture v4.

The tree isolates failures by layer:

	RootSupervisor ("sentinel")
	├── DataSupervisor ("data-layer")
	│   ├── duckdb-checkpoint   periodic CHECKPOINT
	│   └── alert-guard-gc      Badger value log GC (if DEDUPE_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   └── audit-consumer      NATS JetStream consumer (if NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── http-server

A consumer that loses its subscription is restarted without touching the
HTTP server, and vice versa.

Return values decide restarts:

	nil         -> stopped cleanly, not restarted
	error       -> crashed, restarted with backoff
	ctx.Err()   -> shutdown requested

Supervisor events are logged through sutureslog on top of the zerolog-backed
slog handler from internal/logging.

DuckDB is not supervised. It is an embedded library owned by the database
package and is closed by main after the tree stops.
*/
package supervisor
