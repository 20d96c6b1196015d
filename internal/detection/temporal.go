// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"math"
	"time"

	"github.com/tomtom215/sentinel/internal/cluster"
)

const minutesPerDay = 24 * 60

// EncodeTimeOfDay maps the UTC hour and minute of t onto the unit circle so
// that 23:59 and 00:00 are neighbors. Seconds are ignored.
func EncodeTimeOfDay(t time.Time) cluster.Vec2 {
	u := t.UTC()
	minute := u.Hour()*60 + u.Minute()
	angle := 2 * math.Pi * float64(minute) / minutesPerDay
	return cluster.Vec2{X: math.Sin(angle), Y: math.Cos(angle)}
}

// Outcome is the result class of a single analyzer.
type Outcome int

const (
	// OutcomeInsufficient means the analyzer had too little data to judge.
	OutcomeInsufficient Outcome = iota
	OutcomeNormal
	OutcomeAnomalous
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNormal:
		return "normal"
	case OutcomeAnomalous:
		return "anomalous"
	default:
		return "insufficient"
	}
}

// TemporalConfig configures the time-of-day analyzer.
type TemporalConfig struct {
	// MinEvents is the smallest history the analyzer will judge.
	MinEvents int `json:"min_events"`

	// Eps is the DBSCAN radius in unit-circle distance.
	Eps float64 `json:"eps"`

	// MinPts is the DBSCAN core-point threshold.
	MinPts int `json:"min_pts"`

	// Threshold is the largest centroid distance still considered normal.
	Threshold float64 `json:"threshold"`
}

// DefaultTemporalConfig returns the canonical parameters.
func DefaultTemporalConfig() TemporalConfig {
	return TemporalConfig{
		MinEvents: 10,
		Eps:       0.5,
		MinPts:    5,
		Threshold: 0.7, // about 2h40m of arc
	}
}

// TemporalResult explains a temporal judgment.
type TemporalResult struct {
	Outcome Outcome

	// NoBaseline is set when every historical point was noise.
	NoBaseline bool

	Clusters      int
	DominantLabel int
	DominantSize  int
	Centroid      cluster.Vec2
	Distance      float64
}

// TemporalAnalyzer judges the time of day of a new event.
type TemporalAnalyzer struct {
	cfg TemporalConfig
}

// NewTemporalAnalyzer creates a temporal analyzer.
func NewTemporalAnalyzer(cfg TemporalConfig) *TemporalAnalyzer {
	return &TemporalAnalyzer{cfg: cfg}
}

// Analyze clusters the history timestamps and measures how far at lies from
// the dominant cluster's centroid.
func (a *TemporalAnalyzer) Analyze(history []HistoricalEvent, at time.Time) TemporalResult {
	if len(history) < a.cfg.MinEvents {
		return TemporalResult{Outcome: OutcomeInsufficient, DominantLabel: cluster.Noise}
	}

	points := make([]cluster.Vec2, len(history))
	for i, ev := range history {
		points[i] = EncodeTimeOfDay(ev.Timestamp)
	}

	labels := cluster.DBSCAN(points, cluster.Euclidean, cluster.Params{Eps: a.cfg.Eps, MinPts: a.cfg.MinPts})
	label, size, ok := cluster.Dominant(labels)
	if !ok {
		return TemporalResult{Outcome: OutcomeAnomalous, NoBaseline: true, DominantLabel: cluster.Noise}
	}

	members := cluster.Members(labels)
	inDominant := make([]cluster.Vec2, 0, size)
	for _, idx := range members[label] {
		inDominant = append(inDominant, points[idx])
	}
	centroid := cluster.Centroid(inDominant)
	distance := cluster.Euclidean(EncodeTimeOfDay(at), centroid)

	outcome := OutcomeNormal
	if distance > a.cfg.Threshold {
		outcome = OutcomeAnomalous
	}

	return TemporalResult{
		Outcome:       outcome,
		Clusters:      len(members),
		DominantLabel: label,
		DominantSize:  size,
		Centroid:      centroid,
		Distance:      distance,
	}
}
