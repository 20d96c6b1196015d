// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package cluster

import "math"

// Vec2 is a point in the plane.
type Vec2 struct {
	X float64
	Y float64
}

// Euclidean returns the straight-line distance between a and b.
func Euclidean(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Centroid returns the arithmetic mean of the given points.
// The zero Vec2 is returned for an empty slice.
func Centroid(points []Vec2) Vec2 {
	if len(points) == 0 {
		return Vec2{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Vec2{X: sx / n, Y: sy / n}
}

// GeoPoint is a position on the sphere, in radians.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// GeoPointFromDegrees converts a latitude/longitude pair in degrees.
func GeoPointFromDegrees(lat, lon float64) GeoPoint {
	return GeoPoint{Lat: lat * math.Pi / 180.0, Lon: lon * math.Pi / 180.0}
}

// Haversine returns the great-circle central angle between a and b, in radians.
// Multiply by a sphere radius to get a surface distance.
func Haversine(a, b GeoPoint) float64 {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat)*math.Cos(b.Lat)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * math.Asin(math.Sqrt(h))
}
