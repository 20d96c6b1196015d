// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/detection"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type loginRequest struct {
	UserID   string   `json:"user_id" validate:"required,max=16"`
	LogType  string   `json:"log_type" validate:"required,logtype"`
	LogDate  string   `json:"log_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00,notfuture"`
	Lat      *float64 `json:"location_lat" validate:"required_with=Lon,omitempty,latitude"`
	Lon      *float64 `json:"location_lon" validate:"required_with=Lat,omitempty,longitude"`
	Internal string   `json:"-" validate:"omitempty,uuid"`
}

func floatPtr(f float64) *float64 { return &f }

func validRequest() loginRequest {
	return loginRequest{
		UserID:  "user-1",
		LogType: "LOGIN_SUCCESS",
		LogDate: "2026-01-05T09:00:00Z",
		Lat:     floatPtr(-19.9),
		Lon:     floatPtr(-44.1),
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*loginRequest)
		wantField string
		wantTag   string
	}{
		{"valid", func(*loginRequest) {}, "", ""},
		{"valid without location", func(r *loginRequest) { r.Lat, r.Lon = nil, nil }, "", ""},
		{"missing user", func(r *loginRequest) { r.UserID = "" }, "user_id", "required"},
		{"user too long", func(r *loginRequest) { r.UserID = strings.Repeat("u", 17) }, "user_id", "max"},
		{"unknown log type", func(r *loginRequest) { r.LogType = "LOGIN_MAYBE" }, "log_type", "logtype"},
		{"bad date", func(r *loginRequest) { r.LogDate = "yesterday" }, "log_date", "datetime"},
		{"future date", func(r *loginRequest) {
			r.LogDate = time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		}, "log_date", "notfuture"},
		{"past the clock skew", func(r *loginRequest) {
			r.LogDate = time.Now().Add(detection.MaxClockSkew + 30*time.Second).UTC().Format(time.RFC3339)
		}, "log_date", "notfuture"},
		{"within the clock skew", func(r *loginRequest) {
			r.LogDate = time.Now().Add(detection.MaxClockSkew / 4).UTC().Format(time.RFC3339)
		}, "", ""},
		{"latitude out of range", func(r *loginRequest) { r.Lat = floatPtr(91) }, "location_lat", "latitude"},
		{"longitude without latitude", func(r *loginRequest) { r.Lat = nil }, "location_lat", "required_with"},
		{"json dash keeps go name", func(r *loginRequest) { r.Internal = "nope" }, "Internal", "uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := ValidateStruct(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateStruct() = nil, want %s/%s error", tt.wantField, tt.wantTag)
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField || fe.Tag() != tt.wantTag {
				t.Errorf("error = %s/%s (%s), want %s/%s", fe.Field(), fe.Tag(), fe.Error(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestRequestValidationError_IsMalformedInput(t *testing.T) {
	req := validRequest()
	req.UserID = ""

	var err error = ValidateStruct(&req)
	if !errors.Is(err, detection.ErrMalformedInput) {
		t.Error("validation errors should match detection.ErrMalformedInput")
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		req := validRequest()
		req.UserID = ""

		apiErr := ValidateStruct(&req).ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Message != "user_id is required" {
			t.Errorf("Message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "user_id" {
			t.Errorf("Details = %v", apiErr.Details)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		req := validRequest()
		req.UserID = ""
		req.LogType = "NOPE"

		apiErr := ValidateStruct(&req).ToAPIError()
		if !strings.Contains(apiErr.Message, "user_id: user_id is required") ||
			!strings.Contains(apiErr.Message, "log_type: log_type must be a known log type") {
			t.Errorf("Message = %q", apiErr.Message)
		}
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Errorf("Details = %v", apiErr.Details)
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestTranslateMinMax(t *testing.T) {
	type page struct {
		Limit int    `json:"limit" validate:"min=1,max=100"`
		Name  string `json:"name" validate:"omitempty,min=3"`
	}

	err := ValidateStruct(&page{Limit: 0})
	if err == nil || err.Errors()[0].Error() != "limit must be at least 1" {
		t.Errorf("min int = %v", err)
	}

	err = ValidateStruct(&page{Limit: 101})
	if err == nil || err.Errors()[0].Error() != "limit must be at most 100" {
		t.Errorf("max int = %v", err)
	}

	err = ValidateStruct(&page{Limit: 1, Name: "ab"})
	if err == nil || err.Errors()[0].Error() != "name must be at least 3 characters" {
		t.Errorf("min string = %v", err)
	}
}
