package usecases

import (
	"errors"
	"fmt"

	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidBoundary rejects a save whose boundary failed validation. It
// carries the full validation result so callers can render every finding.
type ErrInvalidBoundary struct {
	Result geo.Result
}

func (e *ErrInvalidBoundary) Error() string {
	if len(e.Result.Errors) == 0 {
		return "invalid boundary"
	}
	return fmt.Sprintf("invalid boundary: %s", e.Result.Errors[0].Message)
}

// AsInvalidBoundary unwraps an ErrInvalidBoundary from an error chain.
func AsInvalidBoundary(err error) (*ErrInvalidBoundary, bool) {
	var ib *ErrInvalidBoundary
	if errors.As(err, &ib) {
		return ib, true
	}
	return nil, false
}
