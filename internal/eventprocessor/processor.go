// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// SnapshotEvaluator scores an event against a snapshot the caller holds.
// *detection.Engine satisfies it.
type SnapshotEvaluator interface {
	HistoryLimit() int
	EvaluateSnapshot(ctx context.Context, event detection.LoginEvent, history []detection.HistoricalEvent) (detection.Verdict, error)
}

// Processor records audit entries and scores the evaluable ones.
type Processor struct {
	history detection.HistoryProvider
	store   detection.AuditStore
	engine  SnapshotEvaluator
	now     func() time.Time
}

// NewProcessor creates a processor. engine may be nil, in which case entries
// are only recorded.
func NewProcessor(history detection.HistoryProvider, store detection.AuditStore, engine SnapshotEvaluator) *Processor {
	return &Processor{
		history: history,
		store:   store,
		engine:  engine,
		now:     time.Now,
	}
}

// Ingest validates and records event, then evaluates it when its log type is
// LOGIN_SUCCESS or VAULT_UNLOCKED. The snapshot is read before the insert so
// an event is never scored against itself. event.ID is set on return.
//
// The verdict is nil when no evaluation ran. Errors wrap
// detection.ErrMalformedInput for bad input and
// detection.ErrHistoryUnavailable when the snapshot could not be read; in
// the latter case nothing was recorded.
func (p *Processor) Ingest(ctx context.Context, event *detection.AuditEvent) (*detection.Verdict, error) {
	if err := validateAuditEvent(event); err != nil {
		return nil, err
	}
	if event.LogDate.After(p.now().Add(detection.MaxClockSkew)) {
		return nil, fmt.Errorf("%w: log_date is in the future", detection.ErrMalformedInput)
	}

	evaluate := p.engine != nil && event.LogType.Evaluable()

	var history []detection.HistoricalEvent
	if evaluate {
		limit := p.engine.HistoryLimit()
		if event.ID != "" {
			// A redelivered event may already be stored; read one extra row
			// so dropping it still leaves a full snapshot.
			limit++
		}
		var err error
		history, err = p.history.RecentEvents(ctx, event.UserID, limit)
		if err != nil {
			metrics.RecordCollaboratorFailure("history")
			return nil, fmt.Errorf("%w: %w", detection.ErrHistoryUnavailable, err)
		}
		history = withoutEvent(history, event.ID, p.engine.HistoryLimit())
	}

	if err := p.store.RecordAuditEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record audit event: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("log_id", event.ID).
		Str("user_id", event.UserID).
		Str("log_type", string(event.LogType)).
		Msg("Audit event recorded")

	if !evaluate {
		return nil, nil
	}

	verdict, err := p.engine.EvaluateSnapshot(ctx, event.LoginEvent(), history)
	if err != nil {
		// The entry is stored; a scoring failure is reported but not retried.
		logging.Ctx(ctx).Warn().Err(err).Str("log_id", event.ID).Msg("Evaluation of recorded event failed")
		return nil, nil
	}
	return &verdict, nil
}

// withoutEvent drops the entry with the given id and caps the result at limit.
func withoutEvent(history []detection.HistoricalEvent, id string, limit int) []detection.HistoricalEvent {
	if id != "" {
		for i, ev := range history {
			if ev.ID == id {
				history = append(history[:i:i], history[i+1:]...)
				break
			}
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history
}

func validateAuditEvent(event *detection.AuditEvent) error {
	if event == nil {
		return fmt.Errorf("%w: event is required", detection.ErrMalformedInput)
	}
	if event.UserID == "" {
		return fmt.Errorf("%w: user_id is required", detection.ErrMalformedInput)
	}
	if !event.LogType.Valid() {
		return fmt.Errorf("%w: unknown log_type %q", detection.ErrMalformedInput, event.LogType)
	}
	if event.LogDate.IsZero() {
		return fmt.Errorf("%w: log_date is required", detection.ErrMalformedInput)
	}
	if event.Location != nil {
		return event.Location.Validate()
	}
	return nil
}
