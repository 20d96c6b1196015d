// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package eventprocessor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/sentinel/internal/detection"
)

type processorFixture struct {
	log     *callLog
	history *fakeHistory
	store   *fakeAuditStore
	engine  *fakeEvaluator
	proc    *Processor
}

func newProcessorFixture() *processorFixture {
	log := &callLog{}
	f := &processorFixture{
		log:     log,
		history: &fakeHistory{log: log, events: []detection.HistoricalEvent{{ID: "old-1", Timestamp: at(2, 9, 0)}}},
		store:   &fakeAuditStore{log: log},
		engine:  &fakeEvaluator{log: log, verdict: detection.Verdict{Anomalous: true, Reason: detection.ReasonUnusualTime, LogID: "old-1"}},
	}
	f.proc = NewProcessor(f.history, f.store, f.engine)
	f.proc.now = func() time.Time { return at(10, 12, 0) }
	return f
}

func TestProcessor_Ingest_EvaluableScoresPriorSnapshot(t *testing.T) {
	f := newProcessorFixture()

	ev := &detection.AuditEvent{
		UserID:   "user-1",
		LogType:  detection.LogTypeVaultUnlocked,
		LogDate:  at(5, 3, 0),
		Location: &detection.Coordinates{Latitude: 10, Longitude: 20},
	}
	verdict, err := f.proc.Ingest(context.Background(), ev)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if want := []string{"history", "record", "evaluate"}; !reflect.DeepEqual(f.log.list(), want) {
		t.Errorf("calls = %v, want %v", f.log.list(), want)
	}
	if verdict == nil || !verdict.Anomalous || verdict.LogID != "old-1" {
		t.Errorf("verdict = %+v", verdict)
	}
	if ev.ID != "generated" {
		t.Errorf("event id = %q, want the id assigned on insert", ev.ID)
	}
	if f.history.limit != 50 {
		t.Errorf("history limit = %d, want engine limit", f.history.limit)
	}
	if len(f.engine.history) != 1 || f.engine.event.UserID != "user-1" || f.engine.event.Location == nil {
		t.Errorf("evaluated %+v against %+v", f.engine.event, f.engine.history)
	}
}

func TestProcessor_Ingest_NonEvaluableOnlyRecords(t *testing.T) {
	f := newProcessorFixture()

	verdict, err := f.proc.Ingest(context.Background(), &detection.AuditEvent{
		UserID:  "user-1",
		LogType: detection.LogTypePasswordRevealed,
		LogDate: at(5, 3, 0),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if verdict != nil {
		t.Errorf("verdict = %+v, want nil", verdict)
	}
	if want := []string{"record"}; !reflect.DeepEqual(f.log.list(), want) {
		t.Errorf("calls = %v, want %v", f.log.list(), want)
	}
}

func TestProcessor_Ingest_WithoutEngine(t *testing.T) {
	f := newProcessorFixture()
	proc := NewProcessor(f.history, f.store, nil)

	verdict, err := proc.Ingest(context.Background(), &detection.AuditEvent{
		UserID: "user-1", LogType: detection.LogTypeLoginSuccess, LogDate: time.Now(),
	})
	if err != nil || verdict != nil {
		t.Errorf("Ingest() = %+v, %v", verdict, err)
	}
	if want := []string{"record"}; !reflect.DeepEqual(f.log.list(), want) {
		t.Errorf("calls = %v, want %v", f.log.list(), want)
	}
}

func TestProcessor_Ingest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ev   *detection.AuditEvent
	}{
		{"nil", nil},
		{"no user", &detection.AuditEvent{LogType: detection.LogTypeLogout, LogDate: at(5, 3, 0)}},
		{"unknown type", &detection.AuditEvent{UserID: "u", LogType: "SUDO", LogDate: at(5, 3, 0)}},
		{"no date", &detection.AuditEvent{UserID: "u", LogType: detection.LogTypeLogout}},
		{"future date", &detection.AuditEvent{UserID: "u", LogType: detection.LogTypeLogout, LogDate: at(11, 0, 0)}},
		{"past the clock skew", &detection.AuditEvent{
			UserID: "u", LogType: detection.LogTypeLogout, LogDate: at(10, 12, 0).Add(detection.MaxClockSkew + time.Second),
		}},
		{"bad latitude", &detection.AuditEvent{
			UserID: "u", LogType: detection.LogTypeLoginSuccess, LogDate: at(5, 3, 0),
			Location: &detection.Coordinates{Latitude: 91, Longitude: 0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture()
			_, err := f.proc.Ingest(context.Background(), tt.ev)
			if !errors.Is(err, detection.ErrMalformedInput) {
				t.Errorf("Ingest() error = %v, want ErrMalformedInput", err)
			}
			if len(f.log.list()) != 0 {
				t.Errorf("collaborators called for invalid input: %v", f.log.list())
			}
		})
	}
}

func TestProcessor_Ingest_WithinClockSkew(t *testing.T) {
	f := newProcessorFixture()

	_, err := f.proc.Ingest(context.Background(), &detection.AuditEvent{
		UserID: "u", LogType: detection.LogTypeLogout, LogDate: at(10, 12, 0).Add(detection.MaxClockSkew),
	})
	if err != nil {
		t.Errorf("Ingest() error = %v", err)
	}
}

func TestProcessor_Ingest_RedeliveryExcludesItself(t *testing.T) {
	f := newProcessorFixture()
	f.history.events = []detection.HistoricalEvent{
		{ID: "log-7", Timestamp: at(5, 3, 0)},
		{ID: "old-1", Timestamp: at(2, 9, 0)},
	}

	_, err := f.proc.Ingest(context.Background(), &detection.AuditEvent{
		ID: "log-7", UserID: "user-1", LogType: detection.LogTypeLoginSuccess, LogDate: at(5, 3, 0),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if f.history.limit != 51 {
		t.Errorf("history limit = %d, want one extra row", f.history.limit)
	}
	if len(f.engine.history) != 1 || f.engine.history[0].ID != "old-1" {
		t.Errorf("evaluated against %+v, want only old-1", f.engine.history)
	}
}

func TestWithoutEvent(t *testing.T) {
	history := []detection.HistoricalEvent{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tests := []struct {
		name  string
		id    string
		limit int
		want  []string
	}{
		{"drops match", "b", 5, []string{"a", "c"}},
		{"no match caps", "z", 2, []string{"a", "b"}},
		{"empty id caps", "", 2, []string{"a", "b"}},
		{"drop then cap", "a", 1, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]detection.HistoricalEvent(nil), history...)
			got := withoutEvent(in, tt.id, tt.limit)
			ids := make([]string, len(got))
			for i, ev := range got {
				ids[i] = ev.ID
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("withoutEvent() = %v, want %v", ids, tt.want)
			}
		})
	}
	if history[1].ID != "b" {
		t.Error("input slice must not be modified")
	}
}

func TestProcessor_Ingest_HistoryFailureRecordsNothing(t *testing.T) {
	f := newProcessorFixture()
	f.history.err = errBoom

	_, err := f.proc.Ingest(context.Background(), &detection.AuditEvent{
		UserID: "user-1", LogType: detection.LogTypeLoginSuccess, LogDate: at(5, 3, 0),
	})
	if !errors.Is(err, detection.ErrHistoryUnavailable) || !errors.Is(err, errBoom) {
		t.Errorf("Ingest() error = %v", err)
	}
	if want := []string{"history"}; !reflect.DeepEqual(f.log.list(), want) {
		t.Errorf("calls = %v, want %v", f.log.list(), want)
	}
}

func TestProcessor_Ingest_StoreFailure(t *testing.T) {
	f := newProcessorFixture()
	f.store.err = errBoom

	_, err := f.proc.Ingest(context.Background(), &detection.AuditEvent{
		UserID: "user-1", LogType: detection.LogTypeLoginSuccess, LogDate: at(5, 3, 0),
	})
	if !errors.Is(err, errBoom) || errors.Is(err, detection.ErrMalformedInput) {
		t.Errorf("Ingest() error = %v", err)
	}
	if want := []string{"history", "record"}; !reflect.DeepEqual(f.log.list(), want) {
		t.Errorf("calls = %v, want %v", f.log.list(), want)
	}
}

func TestProcessor_Ingest_EvaluationFailureKeepsRecord(t *testing.T) {
	f := newProcessorFixture()
	f.engine.err = errBoom

	verdict, err := f.proc.Ingest(context.Background(), &detection.AuditEvent{
		UserID: "user-1", LogType: detection.LogTypeLoginSuccess, LogDate: at(5, 3, 0),
	})
	if err != nil || verdict != nil {
		t.Errorf("Ingest() = %+v, %v; want nil, nil", verdict, err)
	}
	if len(f.store.events) != 1 {
		t.Errorf("recorded %d events, want 1", len(f.store.events))
	}
}

func TestProcessor_Ingest_DuckDB(t *testing.T) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	store := detection.NewDuckDBStore(db)
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	engine := detection.NewEngine(detection.DefaultEngineConfig(), store, store, store, nil)
	proc := NewProcessor(store, store, engine)
	proc.now = func() time.Time { return at(31, 0, 0) }

	offsets := []int{-15, -5, 0, 5, 15}
	for day := 1; day <= 20; day++ {
		_, err := proc.Ingest(ctx, &detection.AuditEvent{
			ID:       fmt.Sprintf("log-%02d", day),
			UserID:   "user-1",
			LogType:  detection.LogTypeLoginSuccess,
			LogDate:  at(day, 9, 0).Add(time.Duration(offsets[day%len(offsets)]) * time.Minute),
			Location: &detection.Coordinates{Latitude: -19.967, Longitude: -44.197},
		})
		if err != nil {
			t.Fatalf("day %d: Ingest() error = %v", day, err)
		}
	}

	verdict, err := proc.Ingest(ctx, &detection.AuditEvent{
		UserID:   "user-1",
		LogType:  detection.LogTypeLoginSuccess,
		LogDate:  at(25, 3, 0),
		Location: &detection.Coordinates{Latitude: -19.967, Longitude: -44.197},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if verdict == nil || !verdict.Anomalous || verdict.Reason != detection.ReasonUnusualTime || verdict.LogID != "log-20" {
		t.Fatalf("verdict = %+v, want unusual login time pointing at log-20", verdict)
	}

	alerts, err := store.ListAlerts(ctx, detection.AlertFilter{UserID: "user-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(alerts) != 1 || alerts[0].LogID != "log-20" {
		t.Errorf("alerts = %+v", alerts)
	}

	history, err := store.RecentEvents(ctx, "user-1", 100)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(history) != 21 {
		t.Errorf("history size = %d, want 21", len(history))
	}

	// A redelivered event is already stored but is not scored against itself.
	late := func() *detection.AuditEvent {
		return &detection.AuditEvent{
			ID:       "log-late",
			UserID:   "user-1",
			LogType:  detection.LogTypeLoginSuccess,
			LogDate:  at(26, 3, 0),
			Location: &detection.Coordinates{Latitude: -19.967, Longitude: -44.197},
		}
	}
	for attempt := 1; attempt <= 2; attempt++ {
		verdict, err := proc.Ingest(ctx, late())
		if err != nil {
			t.Fatalf("attempt %d: Ingest() error = %v", attempt, err)
		}
		if verdict == nil || verdict.LogID == "log-late" {
			t.Errorf("attempt %d: verdict = %+v, scored against itself", attempt, verdict)
		}
	}
}
