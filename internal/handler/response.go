package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/match"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	// A lost transition race is not a failure from the user's point of
	// view: the order was already handled through another path.
	if errors.Is(err, service.ErrIllegalTransition) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "order already handled"})
		return
	}

	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrMissingDestination),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, match.ErrLocationUnavailable):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRiderBusy):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrRiderNotAddressed):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
