// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sentinel/config.yaml",
	"/etc/sentinel/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/sentinel.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Detection: DetectionConfig{
			HistoryLimit:      100,
			MinHistory:        10,
			EvaluationTimeout: 10 * time.Second,
			Temporal: TemporalSettings{
				MinEvents: 10,
				Eps:       0.5,
				MinPts:    5,
				Threshold: 0.7,
			},
			Spatial: SpatialSettings{
				MinPoints:     3,
				EpsKm:         50,
				MinPts:        2,
				EarthRadiusKm: 6371,
			},
		},
		Notify: NotifyConfig{
			Expo: ExpoSettings{
				Enabled:       true,
				PushURL:       "https://exp.host/--/api/v2/push/send",
				Timeout:       10 * time.Second,
				RatePerSecond: 50,
				Burst:         10,
			},
			Webhook: WebhookSettings{
				Enabled:     false,
				RateLimitMs: 500,
			},
			Breaker: BreakerSettings{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Dedupe: DedupeConfig{
			Enabled:  true,
			Path:     "/data/alert-guard",
			InMemory: false,
			TTL:      10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			Topic:            "audit.events",
			DurableName:      "sentinel-audit",
			QueueGroup:       "sentinel",
			SubscribersCount: 2,
			AckWait:          30 * time.Second,
			CloseTimeout:     30 * time.Second,
			MaxDeliver:       5,
			MaxAckPending:    256,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTSecret:       "",
			JWTIssuer:       "",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load merges the same layers as LoadWithKoanf without validating the
// result. Tools that only need the database or NATS sections use it so the
// server's security requirements do not apply to them.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps flat environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Detection
	"detection_history_limit":      "detection.history_limit",
	"detection_min_history":        "detection.min_history",
	"detection_timeout":            "detection.evaluation_timeout",
	"detection_temporal_eps":       "detection.temporal.eps",
	"detection_temporal_min_pts":   "detection.temporal.min_pts",
	"detection_temporal_threshold": "detection.temporal.threshold",
	"detection_spatial_eps_km":     "detection.spatial.eps_km",
	"detection_spatial_min_pts":    "detection.spatial.min_pts",

	// Notifications
	"expo_push_enabled":         "notify.expo.enabled",
	"expo_push_url":             "notify.expo.push_url",
	"expo_push_timeout":         "notify.expo.timeout",
	"expo_push_rate":            "notify.expo.rate_per_second",
	"expo_push_burst":           "notify.expo.burst",
	"alert_webhook_enabled":     "notify.webhook.enabled",
	"alert_webhook_url":         "notify.webhook.url",
	"alert_webhook_rate_ms":     "notify.webhook.rate_limit_ms",
	"push_breaker_enabled":      "notify.breaker.enabled",
	"push_breaker_timeout":      "notify.breaker.timeout",
	"push_breaker_min_requests": "notify.breaker.min_requests",
	"push_breaker_ratio":        "notify.breaker.failure_ratio",

	// Alert de-duplication
	"dedupe_enabled":   "dedupe.enabled",
	"dedupe_path":      "dedupe.path",
	"dedupe_in_memory": "dedupe.in_memory",
	"dedupe_ttl":       "dedupe.ttl",

	// NATS
	"nats_enabled":         "nats.enabled",
	"nats_url":             "nats.url",
	"nats_topic":           "nats.topic",
	"nats_durable_name":    "nats.durable_name",
	"nats_queue_group":     "nats.queue_group",
	"nats_subscribers":     "nats.subscribers_count",
	"nats_ack_wait":        "nats.ack_wait",
	"nats_close_timeout":   "nats.close_timeout",
	"nats_max_deliver":     "nats.max_deliver",
	"nats_max_ack_pending": "nats.max_ack_pending",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - EXPO_PUSH_URL -> notify.expo.push_url
//   - JWT_SECRET -> security.jwt_secret
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables do not
	// pollute the configuration.
	return ""
}
