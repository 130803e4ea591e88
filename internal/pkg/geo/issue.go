// Package geo holds the pure geometry routines behind geofence boundary
// validation and evaluation. Everything in here is stateless and
// deterministic; callers own all data and scheduling.
package geo

// Code is a stable symbolic tag identifying a validation finding,
// independent of message wording.
type Code string

const (
	CodeMinPoints        Code = "MIN_POINTS"
	CodeInvalidLatitude  Code = "INVALID_LATITUDE"
	CodeLatitudeRange    Code = "LATITUDE_OUT_OF_RANGE"
	CodeInvalidLongitude Code = "INVALID_LONGITUDE"
	CodeLongitudeRange   Code = "LONGITUDE_OUT_OF_RANGE"
	CodeAutoClose        Code = "AUTO_CLOSE"
	CodeSelfIntersection Code = "SELF_INTERSECTION"
)

// Issue is a single validation finding. Field identifies the offending
// element: "coordinates" for the boundary as a whole, "coordinates[i]" for a
// specific vertex (0-indexed; messages use 1-indexed point numbers).
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// Result is the outcome of one boundary validation pass. Errors block
// acceptance; warnings are advisory. Valid is true iff Errors is empty.
type Result struct {
	Valid    bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// PointResult is the outcome of validating a single coordinate pair.
type PointResult struct {
	Valid  bool    `json:"is_valid"`
	Errors []Issue `json:"errors"`
}
