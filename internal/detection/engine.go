// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// EngineConfig configures the detection engine.
type EngineConfig struct {
	// HistoryLimit caps the snapshot requested from the HistoryProvider.
	HistoryLimit int `json:"history_limit"`

	// Timeout bounds collaborator calls for one evaluation. Zero disables it.
	Timeout time.Duration `json:"timeout"`

	Policy PolicyConfig `json:"policy"`
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistoryLimit: 100,
		Policy:       DefaultPolicyConfig(),
	}
}

// AlertDeduper claims an idempotency key. Claim returns false when the key
// was already claimed within the dedupe window.
type AlertDeduper interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// Engine evaluates login events and drives the alert path.
type Engine struct {
	cfg     EngineConfig
	policy  *Policy
	history HistoryProvider
	alerts  AlertRecorder
	tokens  TokenLookup
	push    Notifier

	mu        sync.RWMutex
	observers []Notifier
	guard     AlertDeduper
	now       func() time.Time
}

// NewEngine creates a detection engine. alerts, tokens and push may be nil,
// in which case the corresponding step of the alert path is skipped.
func NewEngine(
	cfg EngineConfig,
	history HistoryProvider,
	alerts AlertRecorder,
	tokens TokenLookup,
	push Notifier,
) *Engine {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultEngineConfig().HistoryLimit
	}
	return &Engine{
		cfg:     cfg,
		policy:  NewPolicy(cfg.Policy),
		history: history,
		alerts:  alerts,
		tokens:  tokens,
		push:    push,
		now:     time.Now,
	}
}

// RegisterObserver adds a notifier that receives every anomalous verdict,
// whether or not the user has a push token.
func (e *Engine) RegisterObserver(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.observers = append(e.observers, n)
	logging.Info().Str("notifier", n.Name()).Msg("registered alert observer")
}

// SetDeduper installs an alert de-duplication guard.
func (e *Engine) SetDeduper(d AlertDeduper) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guard = d
}

// HistoryLimit returns the configured snapshot size.
func (e *Engine) HistoryLimit() int {
	return e.cfg.HistoryLimit
}

// Evaluate fetches the user's snapshot and scores event against it.
//
// The returned error is non-nil only for malformed input or when the snapshot
// cannot be fetched. Failures while recording or notifying are logged.
func (e *Engine) Evaluate(ctx context.Context, event LoginEvent) (Verdict, error) {
	if err := event.Validate(); err != nil {
		metrics.EvaluationsTotal.WithLabelValues("rejected", "malformed input").Inc()
		return Verdict{}, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	history, err := e.history.RecentEvents(ctx, event.UserID, e.cfg.HistoryLimit)
	if err != nil {
		metrics.RecordCollaboratorFailure("history")
		return Verdict{}, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}

	return e.EvaluateSnapshot(ctx, event, history)
}

// EvaluateSnapshot scores event against a snapshot the caller already holds,
// ordered newest first. Callers that record the event themselves use this to
// score against the history as it was before the insert.
func (e *Engine) EvaluateSnapshot(ctx context.Context, event LoginEvent, history []HistoricalEvent) (Verdict, error) {
	if err := event.Validate(); err != nil {
		metrics.EvaluationsTotal.WithLabelValues("rejected", "malformed input").Inc()
		return Verdict{}, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if len(history) > e.cfg.HistoryLimit {
		history = history[:e.cfg.HistoryLimit]
	}
	metrics.HistorySnapshotSize.Observe(float64(len(history)))

	d := e.policy.Decide(history, event)
	e.logDecision(ctx, event, len(history), d)

	if d.Verdict.Anomalous {
		e.handleAnomaly(ctx, event, d.Verdict)
	}

	verdictLabel := "clean"
	if d.Verdict.Anomalous {
		verdictLabel = "anomalous"
	}
	metrics.RecordEvaluation(verdictLabel, string(d.Verdict.Reason), time.Since(start))

	return d.Verdict, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

func (e *Engine) logDecision(ctx context.Context, event LoginEvent, snapshot int, d Decision) {
	log := logging.CtxWith(ctx).
		Str("user_id", event.UserID).
		Int("snapshot", snapshot).
		Str("stage", string(d.Stage)).
		Logger()

	if d.Spatial != nil {
		metrics.RecordAnalyzer("spatial", d.Spatial.Outcome.String())
		log.Debug().
			Str("outcome", d.Spatial.Outcome.String()).
			Int("points", d.Spatial.Points).
			Int("clusters", d.Spatial.Clusters).
			Int("new_label", d.Spatial.NewLabel).
			Bool("no_baseline", d.Spatial.NoBaseline).
			Msg("spatial analysis")
	}
	if d.Temporal != nil {
		metrics.RecordAnalyzer("temporal", d.Temporal.Outcome.String())
		log.Debug().
			Str("outcome", d.Temporal.Outcome.String()).
			Int("clusters", d.Temporal.Clusters).
			Int("dominant_size", d.Temporal.DominantSize).
			Float64("distance", d.Temporal.Distance).
			Bool("no_baseline", d.Temporal.NoBaseline).
			Msg("temporal analysis")
	}

	if d.Verdict.Anomalous {
		log.Info().Str("reason", string(d.Verdict.Reason)).Str("log_id", d.Verdict.LogID).Msg("anomalous login")
	}
}

// handleAnomaly records one alert and sends one push notification.
func (e *Engine) handleAnomaly(ctx context.Context, event LoginEvent, v Verdict) {
	e.mu.RLock()
	guard := e.guard
	observers := make([]Notifier, len(e.observers))
	copy(observers, e.observers)
	e.mu.RUnlock()

	log := logging.CtxWith(ctx).Str("user_id", event.UserID).Str("reason", string(v.Reason)).Logger()

	if guard != nil {
		fresh, err := guard.Claim(ctx, dedupeKey(event, v.Reason))
		if err != nil {
			metrics.RecordCollaboratorFailure("guard")
			log.Error().Err(err).Msg("alert dedupe check failed, recording anyway")
		} else if !fresh {
			metrics.AlertsSuppressed.Inc()
			log.Info().Msg("duplicate alert suppressed")
			return
		}
	}

	var token string
	if e.tokens != nil {
		t, err := e.tokens.PushToken(ctx, event.UserID)
		if err != nil {
			metrics.RecordCollaboratorFailure("profile")
			log.Error().Err(err).Msg("failed to look up push token")
		}
		token = t
	}

	alert := &Alert{
		ID:        uuid.New().String(),
		UserID:    event.UserID,
		Reason:    v.Reason,
		LogID:     v.LogID,
		CreatedAt: e.now().UTC(),
	}
	if e.alerts != nil {
		if err := e.alerts.SaveAlert(ctx, alert); err != nil {
			metrics.RecordCollaboratorFailure("alert_store")
			log.Error().Err(err).Msg("failed to save alert")
		}
	}

	n := &Notification{
		PushToken: token,
		UserID:    event.UserID,
		AlertID:   alert.ID,
		LogID:     v.LogID,
		Reason:    v.Reason,
		Timestamp: alert.CreatedAt,
	}

	if e.push != nil && e.push.Enabled() {
		if token == "" {
			metrics.NotificationsSent.WithLabelValues(e.push.Name(), "skipped").Inc()
			log.Debug().Msg("user has no push token, notification not sent")
		} else {
			e.send(ctx, e.push, n)
		}
	}

	for _, o := range observers {
		if o.Enabled() {
			e.send(ctx, o, n)
		}
	}
}

func (e *Engine) send(ctx context.Context, notifier Notifier, n *Notification) {
	err := notifier.Send(ctx, n)
	metrics.RecordNotification(notifier.Name(), err)
	if err != nil {
		metrics.RecordCollaboratorFailure("notifier")
		logging.Ctx(ctx).Error().
			Err(err).
			Str("notifier", notifier.Name()).
			Str("user_id", n.UserID).
			Msg("failed to send notification")
	}
}

// dedupeKey identifies one login attempt. Replays of the same event share a
// key; distinct logins never do, even when the snapshot is unchanged.
func dedupeKey(event LoginEvent, reason Reason) string {
	key := event.UserID + "|" + string(reason) + "|" + strconv.FormatInt(event.Timestamp.UnixNano(), 10)
	if event.Location != nil {
		key += "|" + strconv.FormatFloat(event.Location.Latitude, 'f', -1, 64) +
			"," + strconv.FormatFloat(event.Location.Longitude, 'f', -1, 64)
	}
	return key
}
