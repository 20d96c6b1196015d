// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateDetection,
		c.validateNotify,
		c.validateDedupe,
		c.validateNATS,
		c.validateAPI,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be 0 (auto) or positive")
	}
	return nil
}

// validateDetection rejects parameters that would make every verdict
// insufficient or every point noise.
func (c *Config) validateDetection() error {
	d := c.Detection
	if d.MinHistory < 1 {
		return fmt.Errorf("DETECTION_MIN_HISTORY must be at least 1")
	}
	if d.HistoryLimit < d.MinHistory {
		return fmt.Errorf("DETECTION_HISTORY_LIMIT (%d) must be at least DETECTION_MIN_HISTORY (%d)", d.HistoryLimit, d.MinHistory)
	}
	if d.EvaluationTimeout <= 0 {
		return fmt.Errorf("DETECTION_TIMEOUT must be positive")
	}

	t := d.Temporal
	if t.MinEvents < 1 || t.MinPts < 1 {
		return fmt.Errorf("detection.temporal min_events and min_pts must be at least 1")
	}
	// The encoded points lie on the unit circle, so no distance exceeds 2.
	if t.Eps <= 0 || t.Eps > 2 {
		return fmt.Errorf("DETECTION_TEMPORAL_EPS must be in (0, 2]")
	}
	if t.Threshold <= 0 || t.Threshold > 2 {
		return fmt.Errorf("DETECTION_TEMPORAL_THRESHOLD must be in (0, 2]")
	}

	s := d.Spatial
	if s.MinPoints < 1 || s.MinPts < 1 {
		return fmt.Errorf("detection.spatial min_points and min_pts must be at least 1")
	}
	if s.EpsKm <= 0 {
		return fmt.Errorf("DETECTION_SPATIAL_EPS_KM must be positive")
	}
	if s.EarthRadiusKm <= 0 {
		return fmt.Errorf("detection.spatial.earth_radius_km must be positive")
	}
	return nil
}

func (c *Config) validateNotify() error {
	n := c.Notify
	if n.Expo.Enabled {
		if err := validateEndpointURL(n.Expo.PushURL, "EXPO_PUSH_URL"); err != nil {
			return err
		}
		if n.Expo.RatePerSecond < 0 {
			return fmt.Errorf("EXPO_PUSH_RATE must not be negative")
		}
	}
	if n.Webhook.Enabled {
		if n.Webhook.URL == "" {
			return fmt.Errorf("ALERT_WEBHOOK_URL is required when ALERT_WEBHOOK_ENABLED=true")
		}
		if err := validateEndpointURL(n.Webhook.URL, "ALERT_WEBHOOK_URL"); err != nil {
			return err
		}
	}
	if n.Breaker.Enabled {
		if n.Breaker.FailureRatio <= 0 || n.Breaker.FailureRatio > 1 {
			return fmt.Errorf("PUSH_BREAKER_RATIO must be in (0, 1]")
		}
		if n.Breaker.Timeout <= 0 {
			return fmt.Errorf("PUSH_BREAKER_TIMEOUT must be positive")
		}
	}
	return nil
}

func (c *Config) validateDedupe() error {
	if !c.Dedupe.Enabled {
		return nil
	}
	if !c.Dedupe.InMemory && c.Dedupe.Path == "" {
		return fmt.Errorf("DEDUPE_PATH is required unless DEDUPE_IN_MEMORY=true")
	}
	if c.Dedupe.TTL < time.Second {
		return fmt.Errorf("DEDUPE_TTL must be at least 1s")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.Topic == "" {
		return fmt.Errorf("NATS_TOPIC is required when NATS_ENABLED=true")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > 64 {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 64")
	}
	if c.NATS.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1")
	}
	if c.NATS.MaxAckPending < 1 {
		return fmt.Errorf("NATS_MAX_ACK_PENDING must be at least 1")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1 and not exceed API_MAX_PAGE_SIZE")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if c.Security.AuthMode == "jwt" {
		return c.validateJWTSecret()
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none": true,
	"jwt":  true,
}

func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	return nil
}

// validateCORS rejects wildcard origins in production with authentication enabled.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set specific origins: CORS_ORIGINS=https://app.example.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateEndpointURL validates an http(s) endpoint. Paths are allowed.
func validateEndpointURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted
// Supports: nats://, tls://, and ws:// schemes with IP addresses/hostnames and optional ports
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}

// placeholderPatterns indicate the operator forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
