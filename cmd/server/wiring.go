// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/logging"
)

// engineConfig maps the detection settings onto the engine's parameters.
func engineConfig(d *config.DetectionConfig) detection.EngineConfig {
	return detection.EngineConfig{
		HistoryLimit: d.HistoryLimit,
		Timeout:      d.EvaluationTimeout,
		Policy: detection.PolicyConfig{
			MinHistory: d.MinHistory,
			Temporal: detection.TemporalConfig{
				MinEvents: d.Temporal.MinEvents,
				Eps:       d.Temporal.Eps,
				MinPts:    d.Temporal.MinPts,
				Threshold: d.Temporal.Threshold,
			},
			Spatial: detection.SpatialConfig{
				MinPoints:     d.Spatial.MinPoints,
				EpsKm:         d.Spatial.EpsKm,
				MinPts:        d.Spatial.MinPts,
				EarthRadiusKm: d.Spatial.EarthRadiusKm,
			},
		},
	}
}

// pushNotifier builds the Expo notifier, behind a circuit breaker when
// configured.
func pushNotifier(n *config.NotifyConfig) detection.Notifier {
	expo := detection.NewExpoNotifier(detection.ExpoConfig{
		PushURL:       n.Expo.PushURL,
		Enabled:       n.Expo.Enabled,
		Timeout:       n.Expo.Timeout,
		RatePerSecond: n.Expo.RatePerSecond,
		Burst:         n.Expo.Burst,
	})
	if !n.Breaker.Enabled {
		return expo
	}
	return detection.NewBreakerNotifier(expo, detection.BreakerConfig{
		MaxRequests:  n.Breaker.MaxRequests,
		Interval:     n.Breaker.Interval,
		Timeout:      n.Breaker.Timeout,
		MinRequests:  n.Breaker.MinRequests,
		FailureRatio: n.Breaker.FailureRatio,
	})
}

// buildEngine wires the detection engine to the store and notifiers. The
// returned guard is nil when de-duplication is disabled; the caller closes it.
func buildEngine(
	cfg *config.Config,
	store *detection.DuckDBStore,
	tokens detection.TokenLookup,
) (*detection.Engine, *detection.AlertGuard, error) {
	engine := detection.NewEngine(engineConfig(&cfg.Detection), store, store, tokens, pushNotifier(&cfg.Notify))

	if cfg.Notify.Webhook.Enabled {
		engine.RegisterObserver(detection.NewWebhookNotifier(detection.WebhookConfig{
			WebhookURL:  cfg.Notify.Webhook.URL,
			Headers:     cfg.Notify.Webhook.Headers,
			Enabled:     true,
			RateLimitMs: cfg.Notify.Webhook.RateLimitMs,
		}))
		logging.Info().Str("url", cfg.Notify.Webhook.URL).Msg("Alert webhook registered")
	}

	if !cfg.Dedupe.Enabled {
		return engine, nil, nil
	}
	guard, err := detection.OpenAlertGuard(detection.GuardConfig{
		Path:     cfg.Dedupe.Path,
		InMemory: cfg.Dedupe.InMemory,
		TTL:      cfg.Dedupe.TTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open alert guard: %w", err)
	}
	engine.SetDeduper(guard)
	logging.Info().Dur("ttl", cfg.Dedupe.TTL).Bool("in_memory", cfg.Dedupe.InMemory).Msg("Alert de-duplication enabled")

	return engine, guard, nil
}

// buildRouter assembles the HTTP handler tree.
func buildRouter(
	cfg *config.Config,
	db api.Pinger,
	store *detection.DuckDBStore,
	profiles detection.ProfileStore,
	engine api.Evaluator,
	ingestor api.AuditIngestor,
) (http.Handler, error) {
	var jwtManager *auth.JWTManager
	switch cfg.Security.AuthMode {
	case auth.ModeNone:
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none). Use only for local development.")
	default:
		var err error
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return nil, fmt.Errorf("initialize JWT manager: %w", err)
		}
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*). Set explicit origins in production.")
	}

	detectionHandlers := api.NewDetectionHandlers(engine, ingestor, store, profiles, cfg.API)
	router := api.NewRouter(
		api.NewHandler(db, version),
		detectionHandlers,
		auth.NewMiddleware(jwtManager, cfg.Security.AuthMode),
		api.NewChiMiddlewareFromSecurity(&cfg.Security),
	)
	return router.SetupChi(), nil
}
