// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package services adapts Sentinel components to suture.Service.
//
// HTTPServerService turns the ListenAndServe/Shutdown pair into a Serve
// method. PeriodicService runs a maintenance task on a ticker (DuckDB
// checkpoints, Badger value log GC). The NATS audit consumer implements
// suture.Service itself and needs no wrapper.
package services
