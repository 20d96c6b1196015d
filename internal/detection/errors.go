// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import "errors"

var (
	// ErrMalformedInput wraps every input validation failure. Evaluation stops
	// before any clustering when it is returned.
	ErrMalformedInput = errors.New("malformed input")

	// ErrAlertNotFound is returned when acknowledging an unknown alert.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrHistoryUnavailable wraps snapshot fetch failures. No verdict exists
	// without a snapshot, so this one is returned rather than swallowed.
	ErrHistoryUnavailable = errors.New("history unavailable")
)
