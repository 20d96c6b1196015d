// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// DuckDBStore implements HistoryProvider, AlertStore, ProfileStore and
// AuditStore on top of DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a new DuckDB-backed store.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const alertSelectColumns = `s.id, s.user_id, s.reason, s.log_id, s.acknowledged, s.acknowledged_at, s.created_at`

// InitSchema creates the audit log, profile and alert tables if they don't exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
			log_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			log_type TEXT NOT NULL,
			log_date TIMESTAMP NOT NULL,
			ip_address TEXT,
			device_id TEXT,
			credential_id TEXT,
			details JSON,
			location_lat DOUBLE,
			location_lon DOUBLE
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			id TEXT PRIMARY KEY,
			push_token TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS security_alerts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			log_id TEXT,
			acknowledged BOOLEAN DEFAULT false,
			acknowledged_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_log_user_date ON audit_log(user_id, log_date)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user_id ON security_alerts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON security_alerts(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Flush the WAL so a restart does not replay schema creation.
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// observe records query latency and errors.
func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

// RecentEvents returns the user's newest audit entries, newest first.
func (s *DuckDBStore) RecentEvents(ctx context.Context, userID string, limit int) (events []HistoricalEvent, err error) {
	start := time.Now()
	defer func() { observe("select", "audit_log", start, err) }()

	query := `SELECT log_id, log_date, location_lat, location_lon
		FROM audit_log
		WHERE user_id = ?
		ORDER BY log_date DESC, log_id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	events = make([]HistoricalEvent, 0, limit)
	for rows.Next() {
		var ev HistoricalEvent
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		ev.Location = nullableCoordinates(lat, lon)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordAuditEvent inserts one audit entry. A missing ID is generated.
func (s *DuckDBStore) RecordAuditEvent(ctx context.Context, event *AuditEvent) (err error) {
	start := time.Now()
	defer func() { observe("insert", "audit_log", start, err) }()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	var lat, lon sql.NullFloat64
	if event.Location != nil {
		lat = sql.NullFloat64{Float64: event.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: event.Location.Longitude, Valid: true}
	}

	// DuckDB rejects json.Marshaler values; bind details as text.
	var details sql.NullString
	if len(event.Details) > 0 {
		details = sql.NullString{String: string(event.Details), Valid: true}
	}

	// Redelivered events keep their log_id; the second insert is a no-op.
	query := `INSERT OR IGNORE INTO audit_log
		(log_id, user_id, log_type, log_date, ip_address, device_id, credential_id, details, location_lat, location_lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		string(event.LogType),
		event.LogDate.UTC(),
		nullString(event.IPAddress),
		nullString(event.DeviceID),
		nullString(event.CredentialID),
		details,
		lat,
		lon,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// SaveAlert persists a new alert. A missing ID or creation time is filled in.
func (s *DuckDBStore) SaveAlert(ctx context.Context, alert *Alert) (err error) {
	start := time.Now()
	defer func() { observe("insert", "security_alerts", start, err) }()

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO security_alerts (id, user_id, reason, log_id, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		alert.ID,
		alert.UserID,
		string(alert.Reason),
		nullString(alert.LogID),
		alert.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// scanAlertRow scans a single alert row with nullable fields handling.
func scanAlertRow(scanner interface {
	Scan(dest ...interface{}) error
}, alert *Alert, extra ...interface{}) error {
	var logID sql.NullString
	var ackAt sql.NullTime

	dest := []interface{}{
		&alert.ID,
		&alert.UserID,
		&alert.Reason,
		&logID,
		&alert.Acknowledged,
		&ackAt,
		&alert.CreatedAt,
	}
	dest = append(dest, extra...)

	if err := scanner.Scan(dest...); err != nil {
		return err
	}

	alert.LogID = logID.String
	alert.CreatedAt = alert.CreatedAt.UTC()
	if ackAt.Valid {
		t := ackAt.Time.UTC()
		alert.AcknowledgedAt = &t
	}
	return nil
}

// GetAlert retrieves an alert joined with its audit entry. It returns nil, nil
// when the alert does not exist.
func (s *DuckDBStore) GetAlert(ctx context.Context, id string) (detail *AlertDetail, err error) {
	start := time.Now()
	defer func() { observe("select", "security_alerts", start, err) }()

	query := `SELECT ` + alertSelectColumns + `,
			a.ip_address, a.log_type, a.log_date, a.location_lat, a.location_lon
		FROM security_alerts s
		LEFT JOIN audit_log a ON a.log_id = s.log_id
		WHERE s.id = ?`

	detail = &AlertDetail{}
	var ip, logType sql.NullString
	var logDate sql.NullTime
	var lat, lon sql.NullFloat64

	err = scanAlertRow(s.db.QueryRowContext(ctx, query, id), &detail.Alert,
		&ip, &logType, &logDate, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	detail.IPAddress = ip.String
	detail.LogType = LogType(logType.String)
	if logDate.Valid {
		t := logDate.Time.UTC()
		detail.LogDate = &t
	}
	detail.Location = nullableCoordinates(lat, lon)

	return detail, nil
}

// ListAlerts retrieves alerts newest first.
func (s *DuckDBStore) ListAlerts(ctx context.Context, filter AlertFilter) (alerts []Alert, err error) {
	start := time.Now()
	defer func() { observe("select", "security_alerts", start, err) }()

	query := `SELECT ` + alertSelectColumns + ` FROM security_alerts s WHERE 1=1`
	args := make([]interface{}, 0, 4)

	if filter.UserID != "" {
		query += " AND s.user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Acknowledged != nil {
		query += " AND s.acknowledged = ?"
		args = append(args, *filter.Acknowledged)
	}

	query += " ORDER BY s.created_at DESC, s.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts = make([]Alert, 0)
	for rows.Next() {
		var alert Alert
		if err := scanAlertRow(rows, &alert); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert as acknowledged.
func (s *DuckDBStore) AcknowledgeAlert(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { observe("update", "security_alerts", start, err) }()

	query := `UPDATE security_alerts
		SET acknowledged = true, acknowledged_at = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// PushToken returns the user's push token, or "" when none is registered.
func (s *DuckDBStore) PushToken(ctx context.Context, userID string) (token string, err error) {
	start := time.Now()
	defer func() { observe("select", "user_profiles", start, err) }()

	var t sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT push_token FROM user_profiles WHERE id = ?`, userID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get push token: %w", err)
	}
	return t.String, nil
}

// SetPushToken registers or replaces the user's push token. An empty token
// clears it.
func (s *DuckDBStore) SetPushToken(ctx context.Context, userID, token string) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "user_profiles", start, err) }()

	query := `INSERT INTO user_profiles (id, push_token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			push_token = excluded.push_token,
			updated_at = excluded.updated_at`

	if _, err = s.db.ExecContext(ctx, query, userID, nullString(token), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableCoordinates(lat, lon sql.NullFloat64) *Coordinates {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
}
