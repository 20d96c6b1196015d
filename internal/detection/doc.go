// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package detection scores a user's login against that user's own history and
// flags it when the time of day or the location deviates from established
// patterns.
//
// Detection Architecture:
//
//	LoginEvent -> Engine -> Policy.Decide -> Verdict
//	               |            |
//	               |            +-- SpatialAnalyzer  (haversine DBSCAN)
//	               |            +-- TemporalAnalyzer (circular time DBSCAN)
//	               v
//	     AlertStore / Notifier (Expo push, webhook)
//
// The Policy is pure: given a history snapshot and a new event it always
// returns the same Decision. The Engine owns the collaborators. It fetches
// the snapshot, runs the Policy, and on an anomalous verdict records one
// alert and sends one push notification. Collaborator failures after the
// snapshot fetch are logged and counted, never returned to the caller.
//
// Decision order is fixed:
//
//	START     fewer than MinHistory events  -> clean, "insufficient historical data"
//	SPATIAL   only when the event has coordinates; noise -> "unusual location"
//	TEMPORAL  far from the dominant time cluster -> "unusual login time"
//	CLEAN
//
// No cluster state survives a call. Evaluations for different users share
// nothing mutable and may run in parallel.
package detection
