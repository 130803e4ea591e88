package geo

import (
	"fmt"
	"math"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
)

// CloseTolerance is the absolute per-axis tolerance, in degrees, under which
// the first and last vertices are considered coincident.
const CloseTolerance = 1e-6

// ValidatePoint checks a single coordinate pair. NaN and infinities are
// reported as INVALID_*, finite values outside the WGS-84 ranges as
// *_OUT_OF_RANGE. Never panics on malformed numeric input.
func ValidatePoint(lat, lon float64) PointResult {
	var errs []Issue

	switch {
	case math.IsNaN(lat) || math.IsInf(lat, 0):
		errs = append(errs, Issue{
			Field:   "latitude",
			Message: "latitude must be a finite number",
			Code:    CodeInvalidLatitude,
		})
	case lat < -90 || lat > 90:
		errs = append(errs, Issue{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
			Code:    CodeLatitudeRange,
		})
	}

	switch {
	case math.IsNaN(lon) || math.IsInf(lon, 0):
		errs = append(errs, Issue{
			Field:   "longitude",
			Message: "longitude must be a finite number",
			Code:    CodeInvalidLongitude,
		})
	case lon < -180 || lon > 180:
		errs = append(errs, Issue{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
			Code:    CodeLongitudeRange,
		})
	}

	return PointResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateBoundary classifies a candidate boundary.
//
// Checks run in a fixed order: minimum vertex count, per-point coordinate
// ranges, closure, self-intersection. Coordinate errors suppress the shape
// checks entirely — edges derived from out-of-range points are meaningless.
// Closure and self-intersection produce warnings only; the boundary can
// still be saved.
func ValidateBoundary(points domain.Boundary) Result {
	if len(points) < 3 {
		return Result{
			Valid: false,
			Errors: []Issue{{
				Field:   "coordinates",
				Message: "Geofence must have at least 3 points",
				Code:    CodeMinPoints,
			}},
		}
	}

	var errs []Issue
	for i, p := range points {
		pr := ValidatePoint(p.Lat, p.Lon)
		for _, iss := range pr.Errors {
			errs = append(errs, Issue{
				Field:   fmt.Sprintf("coordinates[%d]", i),
				Message: fmt.Sprintf("Point %d: %s", i+1, iss.Message),
				Code:    iss.Code,
			})
		}
	}
	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	var warns []Issue
	if !isClosed(points) {
		warns = append(warns, Issue{
			Field:   "coordinates",
			Message: "Polygon will be automatically closed",
			Code:    CodeAutoClose,
		})
	}

	if len(points) >= 4 && DetectSelfIntersection(points) {
		warns = append(warns, Issue{
			Field:   "coordinates",
			Message: "Polygon edges intersect themselves",
			Code:    CodeSelfIntersection,
		})
	}

	return Result{Valid: true, Warnings: warns}
}

// AutoClose returns the boundary with its first vertex appended when the ring
// is not closed. Already-closed input (and anything shorter than 3 vertices)
// passes through unchanged. Idempotent.
func AutoClose(points domain.Boundary) domain.Boundary {
	if len(points) < 3 || isClosed(points) {
		return points
	}
	closed := make(domain.Boundary, len(points), len(points)+1)
	copy(closed, points)
	return append(closed, points[0])
}

func isClosed(points domain.Boundary) bool {
	if len(points) < 2 {
		return false
	}
	first, last := points[0], points[len(points)-1]
	return math.Abs(first.Lat-last.Lat) <= CloseTolerance &&
		math.Abs(first.Lon-last.Lon) <= CloseTolerance
}
