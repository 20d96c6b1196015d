// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package config loads Sentinel's configuration.

Values are layered with Koanf v2: built-in defaults first, then an optional
YAML file (CONFIG_PATH, ./config.yaml, /etc/sentinel/config.yaml), then
environment variables. Environment variables use flat legacy names
(HTTP_PORT, DUCKDB_PATH, JWT_SECRET) that envTransformFunc maps onto the
nested koanf paths; unknown variables are ignored.

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Detection DetectionConfig `koanf:"detection"`
	Notify    NotifyConfig    `koanf:"notify"`
	Dedupe    DedupeConfig    `koanf:"dedupe"`
	NATS      NATSConfig      `koanf:"nats"`
	API       APIConfig       `koanf:"api"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// DetectionConfig holds the anomaly engine parameters.
type DetectionConfig struct {
	// HistoryLimit caps how many recent events form a snapshot.
	HistoryLimit int `koanf:"history_limit"`

	// MinHistory is the snapshot size below which no verdict is anomalous.
	MinHistory int `koanf:"min_history"`

	// EvaluationTimeout bounds collaborator calls for one evaluation.
	EvaluationTimeout time.Duration `koanf:"evaluation_timeout"`

	Temporal TemporalSettings `koanf:"temporal"`
	Spatial  SpatialSettings  `koanf:"spatial"`
}

// TemporalSettings configures time-of-day clustering.
type TemporalSettings struct {
	MinEvents int     `koanf:"min_events"`
	Eps       float64 `koanf:"eps"`
	MinPts    int     `koanf:"min_pts"`
	Threshold float64 `koanf:"threshold"`
}

// SpatialSettings configures geographic clustering.
type SpatialSettings struct {
	MinPoints     int     `koanf:"min_points"`
	EpsKm         float64 `koanf:"eps_km"`
	MinPts        int     `koanf:"min_pts"`
	EarthRadiusKm float64 `koanf:"earth_radius_km"`
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	Expo    ExpoSettings    `koanf:"expo"`
	Webhook WebhookSettings `koanf:"webhook"`
	Breaker BreakerSettings `koanf:"breaker"`
}

// ExpoSettings configures push delivery to the user's device.
type ExpoSettings struct {
	Enabled       bool          `koanf:"enabled"`
	PushURL       string        `koanf:"push_url"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Burst         int           `koanf:"burst"`
}

// WebhookSettings configures the operator webhook that mirrors every alert.
type WebhookSettings struct {
	Enabled     bool              `koanf:"enabled"`
	URL         string            `koanf:"url"`
	Headers     map[string]string `koanf:"headers"`
	RateLimitMs int               `koanf:"rate_limit_ms"`
}

// BreakerSettings configures the circuit breaker around push delivery.
type BreakerSettings struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// DedupeConfig configures the Badger alert de-duplication guard.
type DedupeConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Path     string        `koanf:"path"`
	InMemory bool          `koanf:"in_memory"`
	TTL      time.Duration `koanf:"ttl"`
}

// NATSConfig configures the audit event consumer.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// Topic carries audit events. It is also the JetStream subject.
	Topic string `koanf:"topic"`

	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count"`
	AckWait          time.Duration `koanf:"ack_wait"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`

	// MaxDeliver bounds redelivery of messages that keep failing.
	MaxDeliver    int `koanf:"max_deliver"`
	MaxAckPending int `koanf:"max_ack_pending"`
}

// APIConfig holds pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and request limiting settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // none or jwt
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}
