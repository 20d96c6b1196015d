// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/detection"
)

// CheckLogRequest is the body of POST /api/v1/check-log.
//
// Coordinates are optional but must be sent as a pair.
type CheckLogRequest struct {
	UserID      string   `json:"user_id" validate:"required,max=128"`
	LogType     string   `json:"log_type" validate:"omitempty,logtype"`
	LogDate     string   `json:"log_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00,notfuture"`
	LocationLat *float64 `json:"location_lat" validate:"required_with=LocationLon,omitempty,latitude"`
	LocationLon *float64 `json:"location_lon" validate:"required_with=LocationLat,omitempty,longitude"`
}

// LoginEvent converts the validated request into the scored event.
func (r *CheckLogRequest) LoginEvent() (detection.LoginEvent, error) {
	ts, err := time.Parse(time.RFC3339, r.LogDate)
	if err != nil {
		return detection.LoginEvent{}, err
	}
	return detection.LoginEvent{
		UserID:    r.UserID,
		LogType:   detection.LogType(r.LogType),
		Timestamp: ts.UTC(),
		Location:  detection.NewCoordinates(r.LocationLat, r.LocationLon),
	}, nil
}

// AuditEventRequest is the body of POST /api/v1/audit-events.
//
// UserID defaults to the token subject and LogDate to the server clock.
type AuditEventRequest struct {
	LogID        string          `json:"log_id" validate:"omitempty,uuid"`
	UserID       string          `json:"user_id" validate:"omitempty,max=128"`
	LogType      string          `json:"log_type" validate:"required,logtype"`
	LogDate      string          `json:"log_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00,notfuture"`
	DeviceID     string          `json:"device_id" validate:"omitempty,max=256"`
	CredentialID string          `json:"credential_id" validate:"omitempty,max=256"`
	Details      json.RawMessage `json:"details"`
	LocationLat  *float64        `json:"location_lat" validate:"required_with=LocationLon,omitempty,latitude"`
	LocationLon  *float64        `json:"location_lon" validate:"required_with=LocationLat,omitempty,longitude"`
}

// AuditEvent converts the validated request. now supplies log_date when the
// request omits it.
func (r *AuditEventRequest) AuditEvent(userID, ipAddress string, now time.Time) (*detection.AuditEvent, error) {
	logDate := now.UTC()
	if r.LogDate != "" {
		ts, err := time.Parse(time.RFC3339, r.LogDate)
		if err != nil {
			return nil, err
		}
		logDate = ts.UTC()
	}
	return &detection.AuditEvent{
		ID:           r.LogID,
		UserID:       userID,
		LogType:      detection.LogType(r.LogType),
		LogDate:      logDate,
		IPAddress:    ipAddress,
		DeviceID:     r.DeviceID,
		CredentialID: r.CredentialID,
		Details:      r.Details,
		Location:     detection.NewCoordinates(r.LocationLat, r.LocationLon),
	}, nil
}

// PushTokenRequest is the body of PUT /api/v1/users/{id}/push-token. An
// empty token clears the registration.
type PushTokenRequest struct {
	PushToken string `json:"push_token" validate:"omitempty,max=512"`
}

// ListAlertsParams holds the query parameters of GET /api/v1/alerts.
type ListAlertsParams struct {
	UserID       string `json:"user_id" validate:"omitempty,max=128"`
	Acknowledged *bool  `json:"acknowledged"`
	Limit        int    `json:"limit" validate:"min=1,max=1000"`
	Offset       int    `json:"offset" validate:"min=0,max=1000000"`
}
