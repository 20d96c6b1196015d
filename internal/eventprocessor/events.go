// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/detection"
)

// AuditEventMessage is the wire format of one audit entry on the bus. It
// mirrors the audit-events request body so producers can reuse one encoder.
type AuditEventMessage struct {
	LogID        string          `json:"log_id,omitempty"`
	UserID       string          `json:"user_id"`
	LogType      string          `json:"log_type"`
	LogDate      time.Time       `json:"log_date"`
	IPAddress    string          `json:"ip_address,omitempty"`
	DeviceID     string          `json:"device_id,omitempty"`
	CredentialID string          `json:"credential_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	LocationLat  *float64        `json:"location_lat,omitempty"`
	LocationLon  *float64        `json:"location_lon,omitempty"`
}

// Validate checks the fields the audit log cannot store without.
func (m *AuditEventMessage) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("%w: user_id is required", detection.ErrMalformedInput)
	}
	if !detection.LogType(m.LogType).Valid() {
		return fmt.Errorf("%w: unknown log_type %q", detection.ErrMalformedInput, m.LogType)
	}
	if m.LogDate.IsZero() {
		return fmt.Errorf("%w: log_date is required", detection.ErrMalformedInput)
	}
	if (m.LocationLat == nil) != (m.LocationLon == nil) {
		return fmt.Errorf("%w: location_lat and location_lon must be set together", detection.ErrMalformedInput)
	}
	if loc := detection.NewCoordinates(m.LocationLat, m.LocationLon); loc != nil {
		return loc.Validate()
	}
	return nil
}

// AuditEvent converts the message to the stored representation.
func (m *AuditEventMessage) AuditEvent() *detection.AuditEvent {
	return &detection.AuditEvent{
		ID:           m.LogID,
		UserID:       m.UserID,
		LogType:      detection.LogType(m.LogType),
		LogDate:      m.LogDate.UTC(),
		IPAddress:    m.IPAddress,
		DeviceID:     m.DeviceID,
		CredentialID: m.CredentialID,
		Details:      m.Details,
		Location:     detection.NewCoordinates(m.LocationLat, m.LocationLon),
	}
}

// NewAuditEventMessage builds the wire form of a stored audit entry.
func NewAuditEventMessage(ev *detection.AuditEvent) *AuditEventMessage {
	m := &AuditEventMessage{
		LogID:        ev.ID,
		UserID:       ev.UserID,
		LogType:      string(ev.LogType),
		LogDate:      ev.LogDate.UTC(),
		IPAddress:    ev.IPAddress,
		DeviceID:     ev.DeviceID,
		CredentialID: ev.CredentialID,
		Details:      ev.Details,
	}
	if ev.Location != nil {
		lat, lon := ev.Location.Latitude, ev.Location.Longitude
		m.LocationLat, m.LocationLon = &lat, &lon
	}
	return m
}
