// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Base location used throughout the tests (Belo Horizonte area).
var baseLocation = Coordinates{Latitude: -19.967, Longitude: -44.197}

// kmNorth returns a point roughly km kilometers north of c.
func kmNorth(c Coordinates, km float64) *Coordinates {
	return &Coordinates{Latitude: c.Latitude + km/111.195, Longitude: c.Longitude}
}

// at returns a UTC timestamp on the given day of January 2026.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.January, day, hour, minute, 0, 0, time.UTC)
}

// dailyHistory builds n events on consecutive days, newest first, with times
// cycling through the given minute offsets from hour:00 and locations jittered
// around loc. A nil loc yields events without coordinates.
func dailyHistory(n, hour int, offsets []int, loc *Coordinates) []HistoricalEvent {
	events := make([]HistoricalEvent, n)
	for i := 0; i < n; i++ {
		off := offsets[i%len(offsets)]
		ts := at(1, hour, 0).AddDate(0, 0, n-i).Add(time.Duration(off) * time.Minute)
		ev := HistoricalEvent{ID: fmt.Sprintf("log-%03d", i), Timestamp: ts}
		if loc != nil {
			jitter := float64(i%5) * 0.001
			ev.Location = &Coordinates{Latitude: loc.Latitude + jitter, Longitude: loc.Longitude - jitter}
		}
		events[i] = ev
	}
	return events
}

// eventsAt builds events at the given clock times (hour, minute pairs), newest first.
func eventsAt(times ...[2]int) []HistoricalEvent {
	events := make([]HistoricalEvent, len(times))
	for i, hm := range times {
		events[i] = HistoricalEvent{
			ID:        fmt.Sprintf("t-%03d", i),
			Timestamp: at(1, hm[0], hm[1]).AddDate(0, 0, len(times)-i),
		}
	}
	return events
}

func repeatTime(n, hour, minute int) [][2]int {
	out := make([][2]int, n)
	for i := range out {
		out[i] = [2]int{hour, minute}
	}
	return out
}

// mockHistory implements HistoryProvider for testing.
type mockHistory struct {
	events []HistoricalEvent
	err    error

	mu    sync.Mutex
	calls int
	limit int
}

func (m *mockHistory) RecentEvents(_ context.Context, _ string, limit int) ([]HistoricalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

// mockAlertStore implements AlertStore for testing.
type mockAlertStore struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (m *mockAlertStore) SaveAlert(_ context.Context, alert *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *mockAlertStore) GetAlert(_ context.Context, id string) (*AlertDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			return &AlertDetail{Alert: a}, nil
		}
	}
	return nil, nil
}

func (m *mockAlertStore) ListAlerts(_ context.Context, _ AlertFilter) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...), nil
}

func (m *mockAlertStore) AcknowledgeAlert(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return nil
		}
	}
	return ErrAlertNotFound
}

func (m *mockAlertStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// mockTokens implements TokenLookup for testing.
type mockTokens struct {
	tokens map[string]string
	err    error
}

func (m *mockTokens) PushToken(_ context.Context, userID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.tokens[userID], nil
}

// mockNotifier implements Notifier for testing.
type mockNotifier struct {
	name    string
	enabled bool
	err     error

	mu   sync.Mutex
	sent []Notification
}

func newMockNotifier(name string) *mockNotifier {
	return &mockNotifier{name: name, enabled: true}
}

func (m *mockNotifier) Send(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *n)
	return m.err
}

func (m *mockNotifier) Name() string  { return m.name }
func (m *mockNotifier) Enabled() bool { return m.enabled }

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// mockDeduper implements AlertDeduper for testing.
type mockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *mockDeduper) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

var errCollaborator = errors.New("collaborator unavailable")
