// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that both values are finite and inside the WGS84 ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrMalformedInput, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrMalformedInput, c.Longitude)
	}
	return nil
}

// NewCoordinates returns a pointer to the pair, or nil when either value is
// missing. A location is only usable when both halves are present.
func NewCoordinates(lat, lon *float64) *Coordinates {
	if lat == nil || lon == nil {
		return nil
	}
	return &Coordinates{Latitude: *lat, Longitude: *lon}
}

// HistoricalEvent is one past event from the user's snapshot.
type HistoricalEvent struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Location  *Coordinates `json:"location,omitempty"`
}

// LoginEvent is the event being scored.
type LoginEvent struct {
	UserID    string       `json:"user_id"`
	LogType   LogType      `json:"log_type,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Location  *Coordinates `json:"location,omitempty"`
}

// Validate rejects events that cannot be evaluated.
func (e LoginEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrMalformedInput)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrMalformedInput)
	}
	if e.Location != nil {
		if err := e.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Reason explains a verdict.
type Reason string

const (
	ReasonInsufficientHistory Reason = "insufficient historical data"
	ReasonUnusualLocation     Reason = "unusual location"
	ReasonUnusualTime         Reason = "unusual login time"
)

// Verdict is the externally visible result of one evaluation.
type Verdict struct {
	Anomalous bool   `json:"anomaly"`
	Reason    Reason `json:"reason,omitempty"`
	LogID     string `json:"log_id,omitempty"`
}

// LogType classifies audit log entries.
type LogType string

const (
	LogTypeLoginSuccess     LogType = "LOGIN_SUCCESS"
	LogTypeLoginFailure     LogType = "LOGIN_FAILURE"
	LogTypeLogout           LogType = "LOGOUT"
	LogTypeVaultUnlocked    LogType = "VAULT_UNLOCKED"
	LogTypeVaultSetup       LogType = "VAULT_SETUP"
	LogTypePasswordCreated  LogType = "PASSWORD_CREATED"
	LogTypePasswordUpdated  LogType = "PASSWORD_UPDATED"
	LogTypePasswordDeleted  LogType = "PASSWORD_DELETED"
	LogTypePasswordRevealed LogType = "PASSWORD_REVEALED"
	LogTypePasswordCopied   LogType = "PASSWORD_COPIED"
)

// LogTypes lists every accepted log type.
var LogTypes = []LogType{
	LogTypeLoginSuccess, LogTypeLoginFailure, LogTypeLogout,
	LogTypeVaultUnlocked, LogTypeVaultSetup,
	LogTypePasswordCreated, LogTypePasswordUpdated, LogTypePasswordDeleted,
	LogTypePasswordRevealed, LogTypePasswordCopied,
}

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	for _, lt := range LogTypes {
		if t == lt {
			return true
		}
	}
	return false
}

// Evaluable reports whether events of this type are scored when ingested.
func (t LogType) Evaluable() bool {
	return t == LogTypeLoginSuccess || t == LogTypeVaultUnlocked
}

// MaxClockSkew is how far ahead of the server clock an event timestamp may
// be before it is rejected as malformed.
const MaxClockSkew = time.Minute

// AuditEvent is one row of the audit log.
type AuditEvent struct {
	ID           string          `json:"log_id"`
	UserID       string          `json:"user_id"`
	LogType      LogType         `json:"log_type"`
	LogDate      time.Time       `json:"log_date"`
	IPAddress    string          `json:"ip_address,omitempty"`
	DeviceID     string          `json:"device_id,omitempty"`
	CredentialID string          `json:"credential_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	Location     *Coordinates    `json:"location,omitempty"`
}

// LoginEvent projects the audit entry onto the scored event.
func (a *AuditEvent) LoginEvent() LoginEvent {
	return LoginEvent{
		UserID:    a.UserID,
		LogType:   a.LogType,
		Timestamp: a.LogDate,
		Location:  a.Location,
	}
}

// Alert is a recorded anomalous verdict.
type Alert struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Reason         Reason     `json:"reason"`
	LogID          string     `json:"log_id,omitempty"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AlertDetail is an alert joined with the audit entry it points at.
type AlertDetail struct {
	Alert
	IPAddress string       `json:"ip_address,omitempty"`
	LogType   LogType      `json:"log_type,omitempty"`
	LogDate   *time.Time   `json:"log_date,omitempty"`
	Location  *Coordinates `json:"location,omitempty"`
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	UserID       string
	Acknowledged *bool
	Limit        int
	Offset       int
}

// Notification is what notifiers deliver for one anomalous verdict.
type Notification struct {
	PushToken string    `json:"-"`
	UserID    string    `json:"user_id"`
	AlertID   string    `json:"alert_id,omitempty"`
	LogID     string    `json:"log_id,omitempty"`
	Reason    Reason    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryProvider returns a user's most recent events, newest first.
type HistoryProvider interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]HistoricalEvent, error)
}

// AlertRecorder persists alerts.
type AlertRecorder interface {
	SaveAlert(ctx context.Context, alert *Alert) error
}

// AlertStore defines the interface for alert persistence and retrieval.
type AlertStore interface {
	AlertRecorder

	// GetAlert returns nil, nil when the alert does not exist.
	GetAlert(ctx context.Context, id string) (*AlertDetail, error)

	ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error)

	// AcknowledgeAlert returns ErrAlertNotFound for unknown ids.
	AcknowledgeAlert(ctx context.Context, id string) error
}

// TokenLookup resolves a user's push destination.
type TokenLookup interface {
	// PushToken returns "" with a nil error when the user has no token.
	PushToken(ctx context.Context, userID string) (string, error)
}

// ProfileStore manages per-user profile data.
type ProfileStore interface {
	TokenLookup
	SetPushToken(ctx context.Context, userID, token string) error
}

// AuditStore persists audit events.
type AuditStore interface {
	RecordAuditEvent(ctx context.Context, event *AuditEvent) error
}

// Notifier delivers notifications for anomalous verdicts.
type Notifier interface {
	Send(ctx context.Context, n *Notification) error

	// Name returns the notifier name (e.g., "expo", "webhook").
	Name() string

	Enabled() bool
}
