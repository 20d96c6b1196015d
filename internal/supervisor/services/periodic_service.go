// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
)

// PeriodicService runs task every interval. Task errors are logged and do
// not stop the service; a panic is left to suture.
type PeriodicService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewPeriodicService creates a service named name. interval defaults to one
// minute.
func NewPeriodicService(name string, interval time.Duration, task func(ctx context.Context) error) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve ticks until ctx is canceled.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *PeriodicService) run(ctx context.Context) {
	taskCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	start := time.Now()
	err := p.task(taskCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Str("service", p.name).Msg("Periodic task failed")
		return
	}
	logging.Debug().Str("service", p.name).Dur("duration", time.Since(start)).Msg("Periodic task completed")
}

func (p *PeriodicService) String() string {
	return p.name
}
