package geo_test

import (
	"testing"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

func TestContains_InsideAndOutside(t *testing.T) {
	square := boundary(
		[2]float64{0, 0}, [2]float64{0, 2}, [2]float64{2, 2}, [2]float64{2, 0},
	)

	cases := []struct {
		name string
		p    domain.GeoPoint
		want bool
	}{
		{"center", domain.GeoPoint{Lat: 1, Lon: 1}, true},
		{"outside east", domain.GeoPoint{Lat: 1, Lon: 3}, false},
		{"outside north", domain.GeoPoint{Lat: 5, Lon: 1}, false},
		{"far away (bbox reject)", domain.GeoPoint{Lat: 50, Lon: 50}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := geo.Contains(square, tc.p); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestContains_ClosedAndUnclosedAgree(t *testing.T) {
	open := boundary([2]float64{0, 0}, [2]float64{0, 2}, [2]float64{2, 2}, [2]float64{2, 0})
	closed := geo.AutoClose(open)
	p := domain.GeoPoint{Lat: 0.5, Lon: 0.5}
	if geo.Contains(open, p) != geo.Contains(closed, p) {
		t.Error("containment answer should not depend on explicit closure")
	}
}

func TestContains_DegenerateRing(t *testing.T) {
	if geo.Contains(boundary([2]float64{0, 0}, [2]float64{1, 1}), domain.GeoPoint{}) {
		t.Error("two points cannot contain anything")
	}
}

func TestBounds(t *testing.T) {
	b := boundary([2]float64{1, -3}, [2]float64{4, 2}, [2]float64{-2, 0})
	minLat, minLon, maxLat, maxLon := geo.Bounds(b)
	if minLat != -2 || maxLat != 4 || minLon != -3 || maxLon != 2 {
		t.Errorf("got bounds (%v,%v,%v,%v)", minLat, minLon, maxLat, maxLon)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Moyua is roughly 400m.
	d := geo.Haversine(43.2603, -2.9334, 43.2627, -2.9253)
	if d < 300 || d > 900 {
		t.Errorf("implausible distance: %.0f m", d)
	}
}

func TestHaversine_ZeroForSamePoint(t *testing.T) {
	if d := geo.Haversine(43.26, -2.93, 43.26, -2.93); d != 0 {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestRadiusBox_ContainsCenter(t *testing.T) {
	minLat, minLon, maxLat, maxLon := geo.RadiusBox(43.26, -2.93, 500)
	if 43.26 < minLat || 43.26 > maxLat || -2.93 < minLon || -2.93 > maxLon {
		t.Error("center must fall inside its own radius box")
	}
}
