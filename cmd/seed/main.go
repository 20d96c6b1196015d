// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package main seeds Sentinel with synthetic login history.
//
// Events go straight into DuckDB by default. With -publish they are sent to
// the NATS audit topic instead, so a running server ingests and scores them.
//
//	seed -users 20 -logs 60 -db ./data/sentinel.duckdb
//	NATS_URL=nats://localhost:4222 seed -publish
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/database"
	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/eventprocessor"
	"github.com/tomtom215/sentinel/internal/logging"
)

// EventSink accepts generated events.
type EventSink interface {
	Send(ctx context.Context, event *detection.AuditEvent) error
}

type storeSink struct{ store *detection.DuckDBStore }

func (s storeSink) Send(ctx context.Context, event *detection.AuditEvent) error {
	return s.store.RecordAuditEvent(ctx, event)
}

type publisherSink struct{ pub *eventprocessor.Publisher }

func (s publisherSink) Send(ctx context.Context, event *detection.AuditEvent) error {
	return s.pub.PublishEvent(ctx, event)
}

func main() {
	users := flag.Int("users", 10, "number of users")
	logs := flag.Int("logs", 40, "logins per user")
	days := flag.Int("days", 30, "days of history")
	seed := flag.Uint64("seed", 42, "random seed")
	dbPath := flag.String("db", "", "DuckDB path (defaults to DUCKDB_PATH)")
	publish := flag.Bool("publish", false, "publish to NATS instead of writing to DuckDB")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", Timestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gen := NewGenerator(GeneratorConfig{Users: *users, LogsPerUser: *logs, Days: *days, Seed: *seed})

	var sink EventSink
	if *publish {
		pub, err := eventprocessor.NewPublisher(&cfg.NATS, eventprocessor.NewWatermillLogger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create NATS publisher")
		}
		defer pub.Close()
		sink = publisherSink{pub: pub}
	} else {
		db, err := database.New(ctx, &cfg.Database)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		store := detection.NewDuckDBStore(db.Conn())
		if err := db.Initialize(ctx, store); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize schema")
		}
		sink = storeSink{store: store}
	}

	n, err := seedEvents(ctx, sink, gen.Events())
	if err != nil {
		logging.Error().Err(err).Int("sent", n).Msg("Seeding stopped")
		return
	}
	logging.Info().Int("events", n).Int("users", *users).Bool("published", *publish).Msg("Seeding complete")
}

// seedEvents sends events in order and returns how many were accepted.
func seedEvents(ctx context.Context, sink EventSink, events []*detection.AuditEvent) (int, error) {
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := sink.Send(ctx, ev); err != nil {
			return i, fmt.Errorf("send event %s: %w", ev.ID, err)
		}
	}
	return len(events), nil
}
