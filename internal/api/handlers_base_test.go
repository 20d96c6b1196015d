// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/models"
)

const testJWTSecret = "api_test_secret_with_more_than_32_characters_0123"

type mockEvaluator struct {
	verdict detection.Verdict
	err     error

	mu     sync.Mutex
	events []detection.LoginEvent
}

func (m *mockEvaluator) Evaluate(_ context.Context, event detection.LoginEvent) (detection.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.verdict, m.err
}

type mockIngestor struct {
	verdict *detection.Verdict
	err     error
	events  []*detection.AuditEvent
}

func (m *mockIngestor) Ingest(_ context.Context, event *detection.AuditEvent) (*detection.Verdict, error) {
	if m.err != nil {
		return nil, m.err
	}
	if event.ID == "" {
		event.ID = "generated-log-id"
	}
	m.events = append(m.events, event)
	return m.verdict, nil
}

type mockAlertStore struct {
	alerts  map[string]*detection.AlertDetail
	list    []detection.Alert
	listErr error
	getErr  error
	ackErr  error

	lastFilter detection.AlertFilter
	acked      []string
}

func (m *mockAlertStore) SaveAlert(context.Context, *detection.Alert) error { return nil }

func (m *mockAlertStore) GetAlert(_ context.Context, id string) (*detection.AlertDetail, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.alerts[id], nil
}

func (m *mockAlertStore) ListAlerts(_ context.Context, filter detection.AlertFilter) ([]detection.Alert, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := m.list
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockAlertStore) AcknowledgeAlert(_ context.Context, id string) error {
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = append(m.acked, id)
	return nil
}

type mockProfileStore struct {
	tokens map[string]string
	err    error
}

func (m *mockProfileStore) PushToken(_ context.Context, userID string) (string, error) {
	return m.tokens[userID], nil
}

func (m *mockProfileStore) SetPushToken(_ context.Context, userID, token string) error {
	if m.err != nil {
		return m.err
	}
	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[userID] = token
	return nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

// testServer bundles a router with its fakes.
type testServer struct {
	handler  http.Handler
	engine   *mockEvaluator
	ingestor *mockIngestor
	alerts   *mockAlertStore
	profiles *mockProfileStore
	jwt      *auth.JWTManager
}

func newTestServer(t *testing.T, authMode string) *testServer {
	t.Helper()

	jwtManager, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testJWTSecret})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	ts := &testServer{
		engine:   &mockEvaluator{verdict: detection.Verdict{Anomalous: false}},
		ingestor: &mockIngestor{},
		alerts:   &mockAlertStore{alerts: map[string]*detection.AlertDetail{}},
		profiles: &mockProfileStore{},
		jwt:      jwtManager,
	}

	dh := NewDetectionHandlers(ts.engine, ts.ingestor, ts.alerts, ts.profiles,
		config.APIConfig{DefaultPageSize: 2, MaxPageSize: 5})
	dh.now = func() time.Time { return time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC) }

	chiMW := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"https://app.example.com"},
		CORSAllowedMethods: []string{"GET", "POST", "PUT"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		RateLimitDisabled:  true,
	})

	router := NewRouter(NewHandler(mockPinger{}, "test"), dh, auth.NewMiddleware(jwtManager, authMode), chiMW)
	ts.handler = router.SetupChi()
	return ts
}

func (ts *testServer) token(t *testing.T, subject, role string) string {
	t.Helper()
	token, err := ts.jwt.GenerateToken(subject, role)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

// do sends a request with an optional JSON body and bearer token.
func (ts *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:51234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// decodeResponse unmarshals the envelope and, when data is non-nil, its
// data field.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()

	var raw struct {
		Status   string           `json:"status"`
		Data     json.RawMessage  `json:"data"`
		Metadata models.Metadata  `json:"metadata"`
		Error    *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("unmarshal data %q: %v", raw.Data, err)
		}
	}
	return models.APIResponse{Status: raw.Status, Metadata: raw.Metadata, Error: raw.Error}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Status != models.StatusError || resp.Error == nil || resp.Error.Code != code {
		t.Errorf("response = %+v, want error code %s", resp, code)
	}
}

var errBoom = errors.New("boom")

func floatPtr(f float64) *float64 { return &f }
