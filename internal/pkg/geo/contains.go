package geo

import "github.com/arkaitzh/fleetfence/internal/core/domain"

// Bounds returns the bounding box of a boundary. Used as a cheap prefilter
// before the exact containment test; not a spatial index.
func Bounds(points domain.Boundary) (minLat, minLon, maxLat, maxLon float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}
	minLat, maxLat = points[0].Lat, points[0].Lat
	minLon, maxLon = points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}
	return minLat, minLon, maxLat, maxLon
}

// Contains reports whether p falls inside the polygon ring using even-odd
// ray casting. The ring is treated as closed (last vertex connects back to
// the first), so both closed and unclosed boundaries give the same answer.
// A bounding-box check rejects far-away points before the exact test.
func Contains(points domain.Boundary, p domain.GeoPoint) bool {
	n := len(points)
	if n < 3 {
		return false
	}

	minLat, minLon, maxLat, maxLon := Bounds(points)
	if p.Lat < minLat || p.Lat > maxLat || p.Lon < minLon || p.Lon > maxLon {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := points[i], points[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) &&
			p.Lon < (pj.Lon-pi.Lon)*(p.Lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lon {
			inside = !inside
		}
	}
	return inside
}
