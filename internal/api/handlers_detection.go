// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

// Evaluator scores a login event against the user's history.
type Evaluator interface {
	Evaluate(ctx context.Context, event detection.LoginEvent) (detection.Verdict, error)
}

// AuditIngestor records an audit entry and, for evaluable log types, scores
// it. The returned verdict is nil when no evaluation ran.
type AuditIngestor interface {
	Ingest(ctx context.Context, event *detection.AuditEvent) (*detection.Verdict, error)
}

// DetectionHandlers provides HTTP handlers for detection-related endpoints.
type DetectionHandlers struct {
	engine   Evaluator
	ingestor AuditIngestor
	alerts   detection.AlertStore
	profiles detection.ProfileStore
	pages    config.APIConfig
	now      func() time.Time
}

// NewDetectionHandlers creates new detection handlers.
func NewDetectionHandlers(
	engine Evaluator,
	ingestor AuditIngestor,
	alerts detection.AlertStore,
	profiles detection.ProfileStore,
	pages config.APIConfig,
) *DetectionHandlers {
	if pages.DefaultPageSize <= 0 {
		pages.DefaultPageSize = 20
	}
	if pages.MaxPageSize < pages.DefaultPageSize {
		pages.MaxPageSize = pages.DefaultPageSize
	}
	return &DetectionHandlers{
		engine:   engine,
		ingestor: ingestor,
		alerts:   alerts,
		profiles: profiles,
		pages:    pages,
		now:      time.Now,
	}
}

// AuditEventResponse is returned by POST /api/v1/audit-events.
type AuditEventResponse struct {
	LogID   string             `json:"log_id"`
	Verdict *detection.Verdict `json:"verdict,omitempty"`
}

// AlertListResponse is returned by GET /api/v1/alerts.
type AlertListResponse struct {
	Alerts     []detection.Alert     `json:"alerts"`
	Pagination models.PaginationInfo `json:"pagination"`
}

// CheckLog handles POST /api/v1/check-log
func (h *DetectionHandlers) CheckLog(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CheckLogRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if !auth.CanAccessUser(r.Context(), req.UserID) {
		respondError(w, http.StatusForbidden, models.CodeAuthorization, "Token may not act on this user", nil)
		return
	}

	event, err := req.LoginEvent()
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "log_date must be a valid date/time in RFC3339 format", nil)
		return
	}

	verdict, err := h.engine.Evaluate(r.Context(), event)
	if err != nil {
		h.respondEvaluationError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, verdict, start)
}

func (h *DetectionHandlers) respondEvaluationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, detection.ErrMalformedInput):
		respondError(w, http.StatusBadRequest, models.CodeValidation, sanitizeLogValue(err.Error()), nil)
	case errors.Is(err, detection.ErrHistoryUnavailable):
		logging.Ctx(r.Context()).Error().Err(err).Msg("Evaluation failed: history unavailable")
		respondError(w, http.StatusServiceUnavailable, models.CodeDetection, "Login history is temporarily unavailable", nil)
	default:
		respondError(w, http.StatusInternalServerError, models.CodeDetection, "Failed to evaluate login", err)
	}
}

// RecordAuditEvent handles POST /api/v1/audit-events
func (h *DetectionHandlers) RecordAuditEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AuditEventRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	userID := req.UserID
	if userID == "" {
		if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
			userID = claims.UserID()
		}
	}
	if userID == "" {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "user_id is required", nil)
		return
	}
	if !auth.CanAccessUser(r.Context(), userID) {
		respondError(w, http.StatusForbidden, models.CodeAuthorization, "Token may not act on this user", nil)
		return
	}

	event, err := req.AuditEvent(userID, clientIP(r), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "log_date must be a valid date/time in RFC3339 format", nil)
		return
	}

	verdict, err := h.ingestor.Ingest(r.Context(), event)
	if err != nil {
		if errors.Is(err, detection.ErrMalformedInput) {
			respondError(w, http.StatusBadRequest, models.CodeValidation, sanitizeLogValue(err.Error()), nil)
			return
		}
		if errors.Is(err, detection.ErrHistoryUnavailable) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Audit event not recorded: history unavailable")
			respondError(w, http.StatusServiceUnavailable, models.CodeDetection, "Login history is temporarily unavailable", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.CodeDatabase, "Failed to record audit event", err)
		return
	}

	respondSuccess(w, http.StatusCreated, AuditEventResponse{LogID: event.ID, Verdict: verdict}, start)
}

// clientIP returns the caller address. chi's RealIP middleware has already
// replaced RemoteAddr with X-Forwarded-For / X-Real-IP when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListAlerts handles GET /api/v1/alerts
func (h *DetectionHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	params := ListAlertsParams{
		UserID:       r.URL.Query().Get("user_id"),
		Acknowledged: getBoolParam(r, "acknowledged"),
		Limit:        getIntParam(r, "limit", h.pages.DefaultPageSize),
		Offset:       getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&params); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if params.Limit > h.pages.MaxPageSize {
		params.Limit = h.pages.MaxPageSize
	}

	if !auth.IsPrivileged(ctx) {
		subject := auth.ClaimsFromContext(ctx).UserID()
		if params.UserID != "" && params.UserID != subject {
			respondError(w, http.StatusForbidden, models.CodeAuthorization, "Token may not list alerts of other users", nil)
			return
		}
		params.UserID = subject
	}

	// One extra row tells whether another page exists.
	alerts, err := h.alerts.ListAlerts(ctx, detection.AlertFilter{
		UserID:       params.UserID,
		Acknowledged: params.Acknowledged,
		Limit:        params.Limit + 1,
		Offset:       params.Offset,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.CodeDatabase, "Failed to fetch alerts", err)
		return
	}

	hasMore := len(alerts) > params.Limit
	if hasMore {
		alerts = alerts[:params.Limit]
	}
	if alerts == nil {
		alerts = []detection.Alert{}
	}

	respondSuccess(w, http.StatusOK, AlertListResponse{
		Alerts: alerts,
		Pagination: models.PaginationInfo{
			Limit:   params.Limit,
			Offset:  params.Offset,
			HasMore: hasMore,
		},
	}, start)
}

// GetAlert handles GET /api/v1/alerts/{id}
func (h *DetectionHandlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	alert, ok := h.loadAlert(w, r)
	if !ok {
		return
	}

	respondSuccess(w, http.StatusOK, alert, start)
}

// AcknowledgeAlert handles POST /api/v1/alerts/{id}/acknowledge
func (h *DetectionHandlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	alert, ok := h.loadAlert(w, r)
	if !ok {
		return
	}

	if err := h.alerts.AcknowledgeAlert(r.Context(), alert.ID); err != nil {
		if errors.Is(err, detection.ErrAlertNotFound) {
			respondError(w, http.StatusNotFound, models.CodeNotFound, "Alert not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.CodeDatabase, "Failed to acknowledge alert", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("alert_id", alert.ID).
		Str("user_id", alert.UserID).
		Msg("Alert acknowledged")

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"id":           alert.ID,
		"acknowledged": true,
	}, start)
}

// loadAlert fetches the {id} alert and enforces ownership. Alerts owned by
// other users are reported as missing.
func (h *DetectionHandlers) loadAlert(w http.ResponseWriter, r *http.Request) (*detection.AlertDetail, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "Alert id is required", nil)
		return nil, false
	}

	alert, err := h.alerts.GetAlert(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.CodeDatabase, "Failed to fetch alert", err)
		return nil, false
	}
	if alert == nil || !auth.CanAccessUser(r.Context(), alert.UserID) {
		respondError(w, http.StatusNotFound, models.CodeNotFound, "Alert not found", nil)
		return nil, false
	}
	return alert, true
}

// SetPushToken handles PUT /api/v1/users/{id}/push-token
func (h *DetectionHandlers) SetPushToken(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID := chi.URLParam(r, "id")
	if userID == "" || len(userID) > 128 {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "User id is required", nil)
		return
	}
	if !auth.CanAccessUser(r.Context(), userID) {
		respondError(w, http.StatusForbidden, models.CodeAuthorization, "Token may not act on this user", nil)
		return
	}

	var req PushTokenRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.profiles.SetPushToken(r.Context(), userID, req.PushToken); err != nil {
		respondError(w, http.StatusInternalServerError, models.CodeDatabase, "Failed to store push token", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"user_id":    userID,
		"registered": req.PushToken != "",
	}, start)
}
