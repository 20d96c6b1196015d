// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package main is the entry point for the Sentinel server.
//
// Sentinel scores logins against each user's own history and raises an alert
// when a login comes from an unusual place or at an unusual time of day.
//
// # Startup order
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. DuckDB and the audit_log, user_profiles and security_alerts tables
//  4. Detection engine with Expo push, operator webhook and Badger dedupe
//  5. Chi router with JWT authentication
//  6. Supervisor tree: HTTP server, NATS consumer (optional), maintenance
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor drains the HTTP
// server and the consumer, then the alert guard and the database are closed.
//
// # Example
//
//	export JWT_SECRET=$(openssl rand -base64 48)
//	export DUCKDB_PATH=/data/sentinel.duckdb
//	export NATS_ENABLED=true NATS_URL=nats://nats:4222
//	./sentinel
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/database"
	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/eventprocessor"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/supervisor"
	"github.com/tomtom215/sentinel/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	checkpointInterval = 5 * time.Minute
	guardGCInterval    = 10 * time.Minute
	shutdownTimeout    = 10 * time.Second
	tokenCacheSize     = 4096
	tokenCacheTTL      = 5 * time.Minute
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Sentinel")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Sentinel stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store := detection.NewDuckDBStore(db.Conn())
	if err := db.Initialize(ctx, store); err != nil {
		return err
	}

	tokens := detection.NewTokenCache(store, tokenCacheSize, tokenCacheTTL)
	engine, guard, err := buildEngine(cfg, store, tokens)
	if err != nil {
		return err
	}
	if guard != nil {
		defer func() {
			if err := guard.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing alert guard")
			}
		}()
	}

	processor := eventprocessor.NewProcessor(store, store, engine)

	handler, err := buildRouter(cfg, db, store, tokens, engine, processor)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if cfg.Database.Path != database.InMemoryPath {
		tree.AddDataService(services.NewPeriodicService("duckdb-checkpoint", checkpointInterval, db.Checkpoint))
	}
	if guard != nil {
		tree.AddDataService(services.NewPeriodicService("alert-guard-gc", guardGCInterval, guard.RunGC))
	}

	if cfg.NATS.Enabled {
		sub, err := eventprocessor.NewSubscriber(&cfg.NATS, eventprocessor.NewWatermillLogger())
		if err != nil {
			return fmt.Errorf("initialize NATS subscriber: %w", err)
		}
		defer func() {
			if err := sub.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing NATS subscriber")
			}
		}()
		tree.AddMessagingService(eventprocessor.NewConsumer(sub, cfg.NATS.Topic, processor))
		logging.Info().Str("topic", cfg.NATS.Topic).Str("url", cfg.NATS.URL).Msg("Audit event consumer added")
	}

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}
