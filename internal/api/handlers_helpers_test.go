// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"line\nbreak", `line\x0abreak`},
		{"tab\tand\rcr", `tab\x09and\x0dcr`},
		{"del\x7f", `del\x7f`},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRespondJSON_Headers(t *testing.T) {
	rec := httptest.NewRecorder()
	respondSuccess(rec, http.StatusCreated, map[string]string{"k": "v"}, time.Now())

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	etag := rec.Header().Get("ETag")
	if !strings.HasPrefix(etag, `"`) || !strings.HasSuffix(etag, `"`) {
		t.Errorf("ETag = %q, want quoted", etag)
	}
	resp := decodeResponse(t, rec, nil)
	if resp.Status != models.StatusSuccess || resp.Metadata.Timestamp.IsZero() {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestGenerateETag_Deterministic(t *testing.T) {
	a := generateETag([]byte(`{"a":1}`))
	if a != generateETag([]byte(`{"a":1}`)) {
		t.Error("same input should give the same ETag")
	}
	if a == generateETag([]byte(`{"a":2}`)) {
		t.Error("different input should give a different ETag")
	}
}

func TestGetParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=15&bad=x&ack=true&nope=maybe", nil)

	if got := getIntParam(req, "limit", 5); got != 15 {
		t.Errorf("limit = %d", got)
	}
	if got := getIntParam(req, "bad", 5); got != 5 {
		t.Errorf("bad = %d, want default", got)
	}
	if got := getIntParam(req, "missing", 7); got != 7 {
		t.Errorf("missing = %d, want default", got)
	}
	if got := getBoolParam(req, "ack"); got == nil || !*got {
		t.Errorf("ack = %v", got)
	}
	if got := getBoolParam(req, "nope"); got != nil {
		t.Errorf("nope = %v, want nil", *got)
	}
	if got := getBoolParam(req, "missing"); got != nil {
		t.Errorf("missing = %v, want nil", *got)
	}
}

func TestDecodeJSONBody_TooLarge(t *testing.T) {
	body := `{"user_id":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var dst CheckLogRequest
	if apiErr := decodeJSONBody(rec, req, &dst); apiErr == nil || apiErr.Code != models.CodeValidation {
		t.Errorf("decodeJSONBody() = %+v, want validation error", apiErr)
	}
}

func TestCheckLogRequest_LoginEvent(t *testing.T) {
	req := CheckLogRequest{
		UserID:      "user-1",
		LogType:     "VAULT_UNLOCKED",
		LogDate:     "2026-01-05T03:30:00-03:00",
		LocationLat: floatPtr(-23.55),
	}

	ev, err := req.LoginEvent()
	if err != nil {
		t.Fatalf("LoginEvent() error = %v", err)
	}
	if !ev.Timestamp.Equal(time.Date(2026, 1, 5, 6, 30, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
	if ev.Location != nil {
		t.Error("half a coordinate pair must not produce a location")
	}
	if ev.LogType != detection.LogTypeVaultUnlocked {
		t.Errorf("log type = %q", ev.LogType)
	}
}
