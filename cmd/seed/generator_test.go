// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/detection"
)

var seedEnd = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestGenerator_Events(t *testing.T) {
	gen := NewGenerator(GeneratorConfig{Users: 3, LogsPerUser: 200, Days: 30, Seed: 7, End: seedEnd})
	events := gen.Events()

	if len(events) != 600 {
		t.Fatalf("len(events) = %d, want 600", len(events))
	}

	perUser := map[string][]*detection.AuditEvent{}
	for _, ev := range events {
		if ev.LogType != detection.LogTypeLoginSuccess || ev.ID == "" || ev.Location == nil {
			t.Fatalf("incomplete event %+v", ev)
		}
		if err := ev.Location.Validate(); err != nil {
			t.Fatalf("location invalid: %v", err)
		}
		if !ev.LogDate.Before(seedEnd) || ev.LogDate.Before(seedEnd.AddDate(0, 0, -31)) {
			t.Fatalf("log date %v outside window", ev.LogDate)
		}
		perUser[ev.UserID] = append(perUser[ev.UserID], ev)
	}
	if len(perUser) != 3 {
		t.Fatalf("users = %d, want 3", len(perUser))
	}

	for user, evs := range perUser {
		working := 0
		for i, ev := range evs {
			if i > 0 && ev.LogDate.Before(evs[i-1].LogDate) {
				t.Errorf("%s: events not in chronological order", user)
			}
			if h := ev.LogDate.Hour(); h >= 8 && h <= 18 {
				working++
			}
		}
		// Expect roughly 80%; allow generous slack for sampling noise.
		if working < 130 || working > 190 {
			t.Errorf("%s: %d of 200 logins in working hours", user, working)
		}
	}
}

func TestGenerator_HomeCluster(t *testing.T) {
	gen := NewGenerator(GeneratorConfig{Users: 1, LogsPerUser: 300, Seed: 11, End: seedEnd})
	events := gen.Events()

	// The median sits inside the home cluster.
	lats := make([]float64, 0, len(events))
	for _, ev := range events {
		lats = append(lats, ev.Location.Latitude)
	}
	center := median(lats)

	near := 0
	for _, ev := range events {
		if math.Abs(ev.Location.Latitude-center) <= 0.11 {
			near++
		}
	}
	if near < 240 {
		t.Errorf("%d of 300 logins near home, want about 270", near)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(GeneratorConfig{Users: 2, LogsPerUser: 5, Seed: 3, End: seedEnd}).Events()
	b := NewGenerator(GeneratorConfig{Users: 2, LogsPerUser: 5, Seed: 3, End: seedEnd}).Events()

	for i := range a {
		if a[i].ID != b[i].ID || !a[i].LogDate.Equal(b[i].LogDate) || *a[i].Location != *b[i].Location {
			t.Fatalf("event %d differs between runs with the same seed", i)
		}
	}
}

type recordingSink struct {
	failAt int
	got    []*detection.AuditEvent
}

func (s *recordingSink) Send(_ context.Context, ev *detection.AuditEvent) error {
	if s.failAt > 0 && len(s.got) == s.failAt {
		return errors.New("sink down")
	}
	s.got = append(s.got, ev)
	return nil
}

func TestSeedEvents(t *testing.T) {
	events := NewGenerator(GeneratorConfig{Users: 1, LogsPerUser: 6, Seed: 1, End: seedEnd}).Events()

	t.Run("all sent", func(t *testing.T) {
		sink := &recordingSink{}
		n, err := seedEvents(context.Background(), sink, events)
		if err != nil || n != 6 || len(sink.got) != 6 {
			t.Errorf("seedEvents() = %d, %v", n, err)
		}
	})

	t.Run("sink failure", func(t *testing.T) {
		sink := &recordingSink{failAt: 2}
		n, err := seedEvents(context.Background(), sink, events)
		if err == nil || n != 2 {
			t.Errorf("seedEvents() = %d, %v", n, err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		n, err := seedEvents(ctx, &recordingSink{}, events)
		if !errors.Is(err, context.Canceled) || n != 0 {
			t.Errorf("seedEvents() = %d, %v", n, err)
		}
	})
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[len(sorted)/2]
}
