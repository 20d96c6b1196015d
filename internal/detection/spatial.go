// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"github.com/tomtom215/sentinel/internal/cluster"
)

// EarthRadiusKm is the mean Earth radius used to turn kilometers into
// haversine central angles.
const EarthRadiusKm = 6371.0

// SpatialConfig configures the location analyzer.
type SpatialConfig struct {
	// MinPoints is the smallest number of located events the analyzer will judge.
	MinPoints int `json:"min_points"`

	// EpsKm is the DBSCAN radius in kilometers.
	EpsKm float64 `json:"eps_km"`

	// MinPts is the DBSCAN core-point threshold.
	MinPts int `json:"min_pts"`

	// EarthRadiusKm converts EpsKm to radians.
	EarthRadiusKm float64 `json:"earth_radius_km"`
}

// DefaultSpatialConfig returns the canonical parameters.
func DefaultSpatialConfig() SpatialConfig {
	return SpatialConfig{
		MinPoints:     3,
		EpsKm:         50,
		MinPts:        2,
		EarthRadiusKm: EarthRadiusKm,
	}
}

// SpatialResult explains a spatial judgment.
type SpatialResult struct {
	Outcome Outcome

	// NoBaseline is set when every historical location was noise.
	NoBaseline bool

	// Points is the number of historical events that carried coordinates.
	Points int

	Clusters int

	// NewLabel is the label the new point received in the combined run.
	NewLabel int
}

// SpatialAnalyzer judges the location of a new event.
type SpatialAnalyzer struct {
	cfg SpatialConfig
}

// NewSpatialAnalyzer creates a spatial analyzer.
func NewSpatialAnalyzer(cfg SpatialConfig) *SpatialAnalyzer {
	if cfg.EarthRadiusKm <= 0 {
		cfg.EarthRadiusKm = EarthRadiusKm
	}
	return &SpatialAnalyzer{cfg: cfg}
}

func (a *SpatialAnalyzer) params() cluster.Params {
	return cluster.Params{Eps: a.cfg.EpsKm / a.cfg.EarthRadiusKm, MinPts: a.cfg.MinPts}
}

// Analyze clusters the located history and reports whether loc would be noise
// once added to it.
func (a *SpatialAnalyzer) Analyze(history []HistoricalEvent, loc Coordinates) SpatialResult {
	points := make([]cluster.GeoPoint, 0, len(history)+1)
	for _, ev := range history {
		if ev.Location == nil {
			continue
		}
		points = append(points, cluster.GeoPointFromDegrees(ev.Location.Latitude, ev.Location.Longitude))
	}

	if len(points) < a.cfg.MinPoints {
		return SpatialResult{Outcome: OutcomeInsufficient, Points: len(points), NewLabel: cluster.Noise}
	}

	params := a.params()
	base := cluster.DBSCAN(points, cluster.Haversine, params)
	if !cluster.HasClusters(base) {
		return SpatialResult{Outcome: OutcomeAnomalous, NoBaseline: true, Points: len(points), NewLabel: cluster.Noise}
	}

	// The new point can bridge or extend clusters, so the whole set is
	// re-clustered rather than testing distance to existing members.
	points = append(points, cluster.GeoPointFromDegrees(loc.Latitude, loc.Longitude))
	combined := cluster.DBSCAN(points, cluster.Haversine, params)
	newLabel := combined[len(combined)-1]

	outcome := OutcomeNormal
	if newLabel == cluster.Noise {
		outcome = OutcomeAnomalous
	}

	return SpatialResult{
		Outcome:  outcome,
		Points:   len(points) - 1,
		Clusters: len(cluster.Members(base)),
		NewLabel: newLabel,
	}
}
