package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Boundary is an ordered sequence of vertices. Insertion order defines edge
// connectivity; the ring is not required to be pre-closed.
type Boundary []GeoPoint
