package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/repository"
	"rental/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unexpected errors are attached to the context for the request logger and
// not echoed to the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var verr *domain.ValidationError
	var derr *domain.VerificationError
	switch {
	case errors.As(err, &verr):
		resp.Field = verr.Field
	case errors.As(err, &derr):
		resp.Field = derr.Field
	}
	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// badRequest sends a 400 for a malformed request.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// mapErrorToHTTPStatus maps domain and service errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Caller-correctable input
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrVerification):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrConcurrency),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	// Payment attempted before the booking was eligible
	case errors.Is(err, domain.ErrPaymentGate):
		return http.StatusPaymentRequired

	// Service unavailable
	case errors.Is(err, service.ErrCheckoutProviderUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
