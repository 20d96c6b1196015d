// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package eventprocessor ingests audit log entries.

Two paths feed the same [Processor]: the HTTP audit-events endpoint calls
[Processor.Ingest] directly, and [Consumer] drains a NATS JetStream subject
through Watermill. Ingest records the entry and, for LOGIN_SUCCESS and
VAULT_UNLOCKED, scores it against the user's history as it stood before the
insert.

Message flow:

	producer -> NATS JetStream (audit.events) -> Subscriber -> Consumer
	         -> Processor.Ingest -> DuckDB audit_log -> detection.Engine

Acknowledgement rules:

  - Recorded (with or without an anomaly): Ack
  - Payload cannot be decoded or fails validation: Ack and count as a parse
    failure; redelivery would never succeed
  - Storage or history failure: Nack; JetStream redelivers up to
    NATS_MAX_DELIVER times

[Publisher] is the producing side, used by the seed tool and by other
services that emit audit events.
*/
package eventprocessor
