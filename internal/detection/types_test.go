// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestCoordinates_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinates
		wantErr bool
	}{
		{"origin", Coordinates{0, 0}, false},
		{"belo horizonte", Coordinates{-19.967, -44.197}, false},
		{"poles and date line", Coordinates{90, -180}, false},
		{"latitude too high", Coordinates{90.1, 0}, true},
		{"longitude too low", Coordinates{0, -180.5}, true},
		{"latitude NaN", Coordinates{math.NaN(), 0}, true},
		{"longitude NaN", Coordinates{0, math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedInput) {
				t.Errorf("error %v does not wrap ErrMalformedInput", err)
			}
		})
	}
}

func TestNewCoordinates(t *testing.T) {
	lat, lon := -19.9, -44.1

	if NewCoordinates(&lat, nil) != nil || NewCoordinates(nil, &lon) != nil {
		t.Error("half a location must be treated as no location")
	}
	c := NewCoordinates(&lat, &lon)
	if c == nil || c.Latitude != lat || c.Longitude != lon {
		t.Errorf("NewCoordinates() = %+v", c)
	}
}

func TestLoginEvent_Validate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		event   LoginEvent
		wantErr bool
	}{
		{"valid", LoginEvent{UserID: "u1", Timestamp: now}, false},
		{"valid with location", LoginEvent{UserID: "u1", Timestamp: now, Location: &Coordinates{10, 10}}, false},
		{"missing user", LoginEvent{Timestamp: now}, true},
		{"missing timestamp", LoginEvent{UserID: "u1"}, true},
		{"bad location", LoginEvent{UserID: "u1", Timestamp: now, Location: &Coordinates{100, 0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedInput) {
				t.Errorf("error %v does not wrap ErrMalformedInput", err)
			}
		})
	}
}

func TestLogType(t *testing.T) {
	for _, lt := range LogTypes {
		if !lt.Valid() {
			t.Errorf("%s should be valid", lt)
		}
	}
	if LogType("LOGIN_MAYBE").Valid() {
		t.Error("unknown log type should be invalid")
	}

	evaluable := map[LogType]bool{LogTypeLoginSuccess: true, LogTypeVaultUnlocked: true}
	for _, lt := range LogTypes {
		if lt.Evaluable() != evaluable[lt] {
			t.Errorf("%s Evaluable() = %v, want %v", lt, lt.Evaluable(), evaluable[lt])
		}
	}
}

func TestAuditEvent_LoginEvent(t *testing.T) {
	a := &AuditEvent{
		ID:       "log-1",
		UserID:   "u1",
		LogType:  LogTypeVaultUnlocked,
		LogDate:  at(3, 8, 15),
		Location: &Coordinates{1, 2},
	}
	ev := a.LoginEvent()
	if ev.UserID != "u1" || ev.LogType != LogTypeVaultUnlocked || !ev.Timestamp.Equal(a.LogDate) || ev.Location != a.Location {
		t.Errorf("LoginEvent() = %+v", ev)
	}
}

func TestVerdict_JSON(t *testing.T) {
	tests := []struct {
		name string
		v    Verdict
		want string
	}{
		{"clean", Verdict{}, `{"anomaly":false}`},
		{"insufficient", Verdict{Reason: ReasonInsufficientHistory}, `{"anomaly":false,"reason":"insufficient historical data"}`},
		{"anomalous", Verdict{Anomalous: true, Reason: ReasonUnusualTime, LogID: "log-1"}, `{"anomaly":true,"reason":"unusual login time","log_id":"log-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("json = %s, want %s", b, tt.want)
			}
		})
	}
}
