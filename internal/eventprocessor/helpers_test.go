// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/sentinel/internal/detection"
)

var errBoom = errors.New("boom")

// at returns a UTC timestamp on the given day of January 2026.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.January, day, hour, minute, 0, 0, time.UTC)
}

// callLog records collaborator calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeHistory struct {
	log    *callLog
	events []detection.HistoricalEvent
	err    error
	limit  int
}

func (f *fakeHistory) RecentEvents(_ context.Context, _ string, limit int) ([]detection.HistoricalEvent, error) {
	f.log.add("history")
	f.limit = limit
	return f.events, f.err
}

type fakeAuditStore struct {
	log *callLog
	err error

	mu     sync.Mutex
	events []*detection.AuditEvent
}

func (f *fakeAuditStore) RecordAuditEvent(_ context.Context, ev *detection.AuditEvent) error {
	f.log.add("record")
	if f.err != nil {
		return f.err
	}
	if ev.ID == "" {
		ev.ID = "generated"
	}
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	return nil
}

type fakeEvaluator struct {
	log     *callLog
	verdict detection.Verdict
	err     error

	history []detection.HistoricalEvent
	event   detection.LoginEvent
}

func (f *fakeEvaluator) HistoryLimit() int { return 50 }

func (f *fakeEvaluator) EvaluateSnapshot(_ context.Context, ev detection.LoginEvent, history []detection.HistoricalEvent) (detection.Verdict, error) {
	f.log.add("evaluate")
	f.event = ev
	f.history = history
	return f.verdict, f.err
}

// fakeIngestor captures what the consumer hands over.
type fakeIngestor struct {
	verdict *detection.Verdict
	err     error

	mu     sync.Mutex
	events []*detection.AuditEvent
	got    chan struct{}
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{got: make(chan struct{}, 16)}
}

func (f *fakeIngestor) Ingest(_ context.Context, ev *detection.AuditEvent) (*detection.Verdict, error) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	f.got <- struct{}{}
	return f.verdict, f.err
}

func (f *fakeIngestor) received() []*detection.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*detection.AuditEvent(nil), f.events...)
}
