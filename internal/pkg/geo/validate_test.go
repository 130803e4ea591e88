package geo_test

import (
	"math"
	"testing"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

func boundary(coords ...[2]float64) domain.Boundary {
	b := make(domain.Boundary, 0, len(coords))
	for _, c := range coords {
		b = append(b, domain.GeoPoint{Lat: c[0], Lon: c[1]})
	}
	return b
}

func codes(issues []geo.Issue) []geo.Code {
	out := make([]geo.Code, 0, len(issues))
	for _, iss := range issues {
		out = append(out, iss.Code)
	}
	return out
}

func hasCode(issues []geo.Issue, code geo.Code) bool {
	for _, iss := range issues {
		if iss.Code == code {
			return true
		}
	}
	return false
}

// --- ValidatePoint ---

func TestValidatePoint_Valid(t *testing.T) {
	res := geo.ValidatePoint(43.263, -2.935)
	if !res.Valid {
		t.Fatalf("expected valid point, got errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(res.Errors))
	}
}

func TestValidatePoint_LatitudeOutOfRange(t *testing.T) {
	for _, lat := range []float64{90.0001, 91, -90.5, 1000} {
		res := geo.ValidatePoint(lat, 0)
		if res.Valid {
			t.Errorf("lat=%v: expected invalid", lat)
		}
		if !hasCode(res.Errors, geo.CodeLatitudeRange) {
			t.Errorf("lat=%v: expected LATITUDE_OUT_OF_RANGE, got %v", lat, codes(res.Errors))
		}
	}
}

func TestValidatePoint_LongitudeOutOfRange(t *testing.T) {
	res := geo.ValidatePoint(0, 180.5)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if !hasCode(res.Errors, geo.CodeLongitudeRange) {
		t.Errorf("expected LONGITUDE_OUT_OF_RANGE, got %v", codes(res.Errors))
	}
}

func TestValidatePoint_NonFinite(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     geo.Code
	}{
		{"nan latitude", math.NaN(), 0, geo.CodeInvalidLatitude},
		{"inf latitude", math.Inf(1), 0, geo.CodeInvalidLatitude},
		{"neg inf latitude", math.Inf(-1), 0, geo.CodeInvalidLatitude},
		{"nan longitude", 0, math.NaN(), geo.CodeInvalidLongitude},
		{"inf longitude", 0, math.Inf(1), geo.CodeInvalidLongitude},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := geo.ValidatePoint(tc.lat, tc.lon)
			if res.Valid {
				t.Fatal("expected invalid")
			}
			if !hasCode(res.Errors, tc.want) {
				t.Errorf("expected %s, got %v", tc.want, codes(res.Errors))
			}
		})
	}
}

func TestValidatePoint_BothAxesInvalid(t *testing.T) {
	res := geo.ValidatePoint(95, 200)
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(res.Errors), codes(res.Errors))
	}
	if res.Errors[0].Code != geo.CodeLatitudeRange || res.Errors[1].Code != geo.CodeLongitudeRange {
		t.Errorf("latitude error must precede longitude error, got %v", codes(res.Errors))
	}
}

// --- ValidateBoundary ---

func TestValidateBoundary_OpenTriangle(t *testing.T) {
	res := geo.ValidateBoundary(boundary([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0}))
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != geo.CodeAutoClose {
		t.Fatalf("expected single AUTO_CLOSE warning, got %v", codes(res.Warnings))
	}
	if hasCode(res.Warnings, geo.CodeSelfIntersection) {
		t.Error("3-point boundary must skip the self-intersection check")
	}
}

func TestValidateBoundary_TooFewPoints(t *testing.T) {
	for _, b := range []domain.Boundary{
		nil,
		boundary([2]float64{0, 0}),
		boundary([2]float64{0, 0}, [2]float64{0, 1}),
	} {
		res := geo.ValidateBoundary(b)
		if res.Valid {
			t.Fatalf("len=%d: expected invalid", len(b))
		}
		if len(res.Errors) != 1 || res.Errors[0].Code != geo.CodeMinPoints {
			t.Fatalf("len=%d: expected exactly one MIN_POINTS error, got %v", len(b), codes(res.Errors))
		}
		if res.Errors[0].Message != "Geofence must have at least 3 points" {
			t.Errorf("unexpected message: %q", res.Errors[0].Message)
		}
	}
}

func TestValidateBoundary_RangeErrorSkipsShapeChecks(t *testing.T) {
	res := geo.ValidateBoundary(boundary([2]float64{91, 0}, [2]float64{0, 1}, [2]float64{1, 0}))
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) != 1 || res.Errors[0].Code != geo.CodeLatitudeRange {
		t.Fatalf("expected single LATITUDE_OUT_OF_RANGE, got %v", codes(res.Errors))
	}
	if res.Errors[0].Field != "coordinates[0]" {
		t.Errorf("expected field coordinates[0], got %q", res.Errors[0].Field)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("shape checks must be skipped after point errors, got warnings %v", codes(res.Warnings))
	}
}

func TestValidateBoundary_PointMessagesAreOneIndexed(t *testing.T) {
	res := geo.ValidateBoundary(boundary([2]float64{0, 0}, [2]float64{95, 0}, [2]float64{1, 0}))
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", codes(res.Errors))
	}
	if res.Errors[0].Field != "coordinates[1]" {
		t.Errorf("expected field coordinates[1], got %q", res.Errors[0].Field)
	}
	if want := "Point 2: latitude must be between -90 and 90"; res.Errors[0].Message != want {
		t.Errorf("expected %q, got %q", want, res.Errors[0].Message)
	}
}

func TestValidateBoundary_ClosedSquare(t *testing.T) {
	res := geo.ValidateBoundary(boundary(
		[2]float64{0, 0}, [2]float64{0, 2}, [2]float64{2, 2}, [2]float64{2, 0}, [2]float64{0, 0},
	))
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("closed simple square should carry no warnings, got %v", codes(res.Warnings))
	}
}

func TestValidateBoundary_Bowtie(t *testing.T) {
	res := geo.ValidateBoundary(boundary(
		[2]float64{0, 0}, [2]float64{2, 2}, [2]float64{2, 0}, [2]float64{0, 2}, [2]float64{0, 0},
	))
	if !res.Valid {
		t.Fatal("self-intersection is advisory, boundary must stay valid")
	}
	if !hasCode(res.Warnings, geo.CodeSelfIntersection) {
		t.Errorf("expected SELF_INTERSECTION warning, got %v", codes(res.Warnings))
	}
}

func TestValidateBoundary_Deterministic(t *testing.T) {
	b := boundary(
		[2]float64{0, 0}, [2]float64{2, 2}, [2]float64{2, 0}, [2]float64{0, 2},
	)
	first := geo.ValidateBoundary(b)
	second := geo.ValidateBoundary(b)

	if first.Valid != second.Valid {
		t.Fatal("validity differs between identical passes")
	}
	fc, sc := codes(first.Errors), codes(second.Errors)
	fw, sw := codes(first.Warnings), codes(second.Warnings)
	if len(fc) != len(sc) || len(fw) != len(sw) {
		t.Fatal("issue counts differ between identical passes")
	}
	for i := range fc {
		if fc[i] != sc[i] {
			t.Fatalf("error order differs at %d: %s vs %s", i, fc[i], sc[i])
		}
	}
	for i := range fw {
		if fw[i] != sw[i] {
			t.Fatalf("warning order differs at %d: %s vs %s", i, fw[i], sw[i])
		}
	}
}

func TestValidateBoundary_ValidImpliesPointsValid(t *testing.T) {
	b := boundary([2]float64{43.26, -2.93}, [2]float64{43.27, -2.93}, [2]float64{43.27, -2.92})
	res := geo.ValidateBoundary(b)
	if !res.Valid {
		t.Fatalf("expected valid, got %v", codes(res.Errors))
	}
	for i, p := range b {
		if pr := geo.ValidatePoint(p.Lat, p.Lon); !pr.Valid {
			t.Errorf("point %d invalid despite valid boundary", i)
		}
	}
}

// --- AutoClose ---

func TestAutoClose_AppendsFirstPoint(t *testing.T) {
	b := boundary([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0})
	closed := geo.AutoClose(b)
	if len(closed) != 4 {
		t.Fatalf("expected 4 points, got %d", len(closed))
	}
	if closed[3] != closed[0] {
		t.Errorf("last point %v should equal first %v", closed[3], closed[0])
	}
	if len(b) != 3 {
		t.Error("input must not be mutated")
	}
}

func TestAutoClose_Idempotent(t *testing.T) {
	b := boundary([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0})
	once := geo.AutoClose(b)
	twice := geo.AutoClose(once)
	if len(once) != len(twice) {
		t.Fatalf("length changed on second close: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("point %d changed on second close", i)
		}
	}
}

func TestAutoClose_WithinTolerance(t *testing.T) {
	// First/last differ by well under the closure tolerance — already closed.
	b := boundary([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0}, [2]float64{1e-9, 1e-9})
	if got := geo.AutoClose(b); len(got) != 4 {
		t.Errorf("expected pass-through, got %d points", len(got))
	}
}

func TestAutoClose_ShortInputPassesThrough(t *testing.T) {
	b := boundary([2]float64{0, 0}, [2]float64{0, 1})
	if got := geo.AutoClose(b); len(got) != 2 {
		t.Errorf("expected unchanged 2 points, got %d", len(got))
	}
}

// --- DetectSelfIntersection ---

func TestDetectSelfIntersection_Bowtie(t *testing.T) {
	b := boundary(
		[2]float64{0, 0}, [2]float64{2, 2}, [2]float64{2, 0}, [2]float64{0, 2}, [2]float64{0, 0},
	)
	if !geo.DetectSelfIntersection(b) {
		t.Error("bowtie should self-intersect")
	}
}

func TestDetectSelfIntersection_SimpleSquare(t *testing.T) {
	b := boundary(
		[2]float64{0, 0}, [2]float64{0, 2}, [2]float64{2, 2}, [2]float64{2, 0}, [2]float64{0, 0},
	)
	if geo.DetectSelfIntersection(b) {
		t.Error("simple square should not self-intersect")
	}
}

func TestDetectSelfIntersection_TooFewPoints(t *testing.T) {
	b := boundary([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0})
	if geo.DetectSelfIntersection(b) {
		t.Error("fewer than 4 points can never self-intersect")
	}
}

func TestDetectSelfIntersection_Deterministic(t *testing.T) {
	b := boundary(
		[2]float64{0, 0}, [2]float64{2, 2}, [2]float64{2, 0}, [2]float64{0, 2},
	)
	if geo.DetectSelfIntersection(b) != geo.DetectSelfIntersection(b) {
		t.Error("repeated detection returned different answers")
	}
}
