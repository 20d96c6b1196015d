// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/tomtom215/sentinel/internal/detection"
)

// Share of generated logins that follow the user's habits.
const (
	workHoursShare = 0.8
	homeAreaShare  = 0.9
)

// GeneratorConfig controls the synthetic history.
type GeneratorConfig struct {
	Users       int
	LogsPerUser int
	Days        int
	Seed        uint64
	End         time.Time
}

// Generator produces plausible login histories: most logins during working
// hours near a per-user home location, with occasional outliers.
type Generator struct {
	faker *gofakeit.Faker
	cfg   GeneratorConfig
}

// NewGenerator creates a generator. The same seed yields the same events.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	if cfg.End.IsZero() {
		cfg.End = time.Now().UTC()
	}
	return &Generator{faker: gofakeit.New(cfg.Seed), cfg: cfg}
}

// Events returns every user's history in chronological order per user.
func (g *Generator) Events() []*detection.AuditEvent {
	out := make([]*detection.AuditEvent, 0, g.cfg.Users*g.cfg.LogsPerUser)
	for u := 0; u < g.cfg.Users; u++ {
		out = append(out, g.userEvents(fmt.Sprintf("seed-user-%03d", u+1))...)
	}
	return out
}

func (g *Generator) userEvents(userID string) []*detection.AuditEvent {
	home := detection.Coordinates{
		Latitude:  g.faker.Float64Range(-60, 60),
		Longitude: g.faker.Float64Range(-170, 170),
	}
	deviceID := g.faker.UUID()
	ip := g.faker.IPv4Address()

	events := make([]*detection.AuditEvent, 0, g.cfg.LogsPerUser)
	for i := 0; i < g.cfg.LogsPerUser; i++ {
		loc := g.location(home)
		events = append(events, &detection.AuditEvent{
			ID:        g.faker.UUID(),
			UserID:    userID,
			LogType:   detection.LogTypeLoginSuccess,
			LogDate:   g.timestamp(),
			IPAddress: ip,
			DeviceID:  deviceID,
			Location:  &loc,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].LogDate.Before(events[j].LogDate) })
	return events
}

// timestamp picks a day in the window, then an hour that is inside 08:00 to
// 18:59 UTC for most logins.
func (g *Generator) timestamp() time.Time {
	day := g.cfg.End.Truncate(24*time.Hour).AddDate(0, 0, -g.faker.IntRange(1, g.cfg.Days))

	var hour int
	if g.faker.Float64() < workHoursShare {
		hour = g.faker.IntRange(8, 18)
	} else {
		hour = (19 + g.faker.IntRange(0, 12)) % 24
	}
	return day.Add(time.Duration(hour)*time.Hour +
		time.Duration(g.faker.IntRange(0, 59))*time.Minute +
		time.Duration(g.faker.IntRange(0, 59))*time.Second)
}

// location jitters around home, or lands one to five degrees away.
func (g *Generator) location(home detection.Coordinates) detection.Coordinates {
	if g.faker.Float64() < homeAreaShare {
		return detection.Coordinates{
			Latitude:  home.Latitude + g.faker.Float64Range(-0.05, 0.05),
			Longitude: home.Longitude + g.faker.Float64Range(-0.05, 0.05),
		}
	}
	return detection.Coordinates{
		Latitude:  home.Latitude + g.offset(),
		Longitude: home.Longitude + g.offset(),
	}
}

func (g *Generator) offset() float64 {
	d := g.faker.Float64Range(1, 5)
	if g.faker.Bool() {
		return -d
	}
	return d
}
