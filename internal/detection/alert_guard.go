// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const alertGuardPrefix = "alert:"

// GuardConfig configures the alert de-duplication guard.
type GuardConfig struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string        `json:"path"`
	InMemory bool          `json:"in_memory"`
	TTL      time.Duration `json:"ttl"`
}

// AlertGuard de-duplicates alerts for concurrent evaluations of the same user.
// A key is claimable once per TTL window.
type AlertGuard struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenAlertGuard opens a Badger-backed guard.
func OpenAlertGuard(cfg GuardConfig) (*AlertGuard, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("alert guard path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.ValueLogFileSize = 16 << 20
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for alert guard: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AlertGuard{db: db, ttl: ttl}, nil
}

// Claim returns true the first time key is seen within the TTL window. A
// transaction conflict means a concurrent caller claimed the key first.
func (g *AlertGuard) Claim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	k := []byte(alertGuardPrefix + key)
	fresh := false

	err := g.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano))
		if err := txn.SetEntry(badger.NewEntry(k, stamp).WithTTL(g.ttl)); err != nil {
			return err
		}
		fresh = true
		return nil
	})

	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("alert guard claim: %w", err)
	}
	return fresh, nil
}

// RunGC reclaims value log space held by expired claims. It loops until
// Badger reports nothing left to rewrite.
func (g *AlertGuard) RunGC(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := g.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("alert guard gc: %w", err)
		}
	}
}

// Close releases the Badger database.
func (g *AlertGuard) Close() error {
	return g.db.Close()
}
