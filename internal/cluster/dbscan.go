// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package cluster implements density-based clustering (DBSCAN) over small,
// bounded point sets.
//
// The clusterer is generic over the point type and takes the distance function
// as a parameter, so the same primitive serves both the circular time-of-day
// space (Euclidean on sin/cos pairs) and the geographic space (haversine on
// radian coordinates).
//
// DETERMINISM: points are visited strictly in input order and cluster ids are
// assigned in discovery order starting at 0. Given the same input sequence and
// parameters, the label assignment is identical on every run.
package cluster

// Noise is the label assigned to points that do not belong to any cluster.
const Noise = -1

// unclassified marks points that have not been visited yet.
const unclassified = -2

// Metric returns the distance between two points. It must be symmetric.
type Metric[P any] func(a, b P) float64

// Params configures a DBSCAN run.
type Params struct {
	// Eps is the neighborhood radius, in the metric's units.
	Eps float64

	// MinPts is the minimum neighborhood size, including the point itself,
	// for a point to be a core point.
	MinPts int
}

// DBSCAN labels each point with a cluster id (>= 0) or Noise.
//
// A point whose eps-neighborhood (itself included) has fewer than MinPts
// members is tentatively noise; it is reclaimed as a border point if a later
// cluster expansion reaches it. Expansion only continues through core points.
//
// The result has the same length and order as points. Empty input yields an
// empty slice. The run costs O(n²) metric evaluations.
func DBSCAN[P any](points []P, metric Metric[P], params Params) []int {
	n := len(points)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	for i := range labels {
		labels[i] = unclassified
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if metric(points[i], points[j]) <= params.Eps {
				out = append(out, j)
			}
		}
		return out
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unclassified {
			continue
		}

		seeds := neighbors(i)
		if len(seeds) < params.MinPts {
			labels[i] = Noise
			continue
		}

		id := next
		next++
		labels[i] = id

		// Breadth-first expansion in neighbor order keeps border assignment
		// stable: a border point joins the first cluster that reaches it.
		queue := append([]int(nil), seeds...)
		for k := 0; k < len(queue); k++ {
			j := queue[k]
			if labels[j] == Noise {
				labels[j] = id
				continue
			}
			if labels[j] != unclassified {
				continue
			}
			labels[j] = id

			if more := neighbors(j); len(more) >= params.MinPts {
				queue = append(queue, more...)
			}
		}
	}

	return labels
}

// Members groups point indexes by cluster label, excluding noise.
func Members(labels []int) map[int][]int {
	out := make(map[int][]int)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		out[l] = append(out[l], i)
	}
	return out
}

// HasClusters reports whether at least one point was assigned to a cluster.
func HasClusters(labels []int) bool {
	for _, l := range labels {
		if l != Noise {
			return true
		}
	}
	return false
}

// Dominant returns the label with the most members and that member count.
// Ties go to the lowest label, which is the first cluster discovered.
// ok is false when every point is noise.
func Dominant(labels []int) (label, size int, ok bool) {
	counts := make(map[int]int)
	for _, l := range labels {
		if l != Noise {
			counts[l]++
		}
	}
	if len(counts) == 0 {
		return Noise, 0, false
	}

	label = Noise
	for l, c := range counts {
		if c > size || (c == size && l < label) {
			label, size = l, c
		}
	}
	return label, size, true
}
