package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// APIError is a structured error response.
type APIError struct {
	Status     int         `json:"status"`
	Code       string      `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message    string      `json:"message"` // Human-readable message
	RequestID  string      `json:"request_id,omitempty"`
	Validation *geo.Result `json:"validation,omitempty"` // present on boundary rejections
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errInvalidBoundary returns a 422 carrying the full validation result.
func errInvalidBoundary(c *fiber.Ctx, res geo.Result) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(422).JSON(APIError{
		Status:     422,
		Code:       "invalid_boundary",
		Message:    "geofence boundary failed validation",
		RequestID:  reqID,
		Validation: &res,
	})
}
