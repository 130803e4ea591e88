package geo

import "github.com/arkaitzh/fleetfence/internal/core/domain"

// DetectSelfIntersection reports whether any two non-adjacent edges of the
// boundary cross. Edge i connects points[i] to points[i+1]; for a closed ring
// the final edge is the one returning to the first vertex, so the (first,
// last) edge pair shares a vertex by construction and is skipped along with
// ordinary adjacent pairs. Boundaries with fewer than 4 vertices cannot
// self-intersect and return false.
//
// Full O(n²) pairwise scan — boundaries are hand-drawn and stay in the tens
// of vertices. The orientation test is strict: exactly collinear or
// endpoint-touching edges are not flagged.
func DetectSelfIntersection(points domain.Boundary) bool {
	if len(points) < 4 {
		return false
	}

	lastEdge := len(points) - 2
	for i := 0; i <= lastEdge; i++ {
		for j := i + 2; j <= lastEdge; j++ {
			if i == 0 && j == lastEdge {
				continue
			}
			if segmentsCross(points[i], points[i+1], points[j], points[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper intersection between segments a–b and c–d.
func segmentsCross(a, b, c, d domain.GeoPoint) bool {
	return ccw(a, c, d) != ccw(b, c, d) && ccw(a, b, c) != ccw(a, b, d)
}

// ccw is the counter-clockwise orientation predicate for the ordered triple
// (p, q, r).
func ccw(p, q, r domain.GeoPoint) bool {
	return (r.Lon-p.Lon)*(q.Lat-p.Lat) > (q.Lon-p.Lon)*(r.Lat-p.Lat)
}
