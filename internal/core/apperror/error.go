// Package apperror provides structured error handling for the movement engine.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the movement and transfer engine.
const (
	// Infrastructure errors (5xx)
	CodeInternal                 = "INTERNAL_ERROR"
	CodeDatabase                 = "DATABASE_ERROR"
	CodeLocationResolutionFailed = "LOCATION_RESOLUTION_FAILED"

	// Validation errors (400)
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidDestination = "INVALID_DESTINATION"

	// Business rule violations (422)
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeValidationRequired     = "VALIDATION_REQUIRED"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Token/confirmation errors
	CodeAlreadyConfirmed = "ALREADY_CONFIRMED"
	CodeExpired          = "EXPIRED"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the service.
// It implements the error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidDestination is returned when a movement names neither a location
// nor a person, or when source and destination are the same.
func NewInvalidDestination(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidDestination,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(productID string, requested, available int) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewInvalidQuantity is returned when a confirmed quantity exceeds the sent
// quantity, or a quantity is outside its allowed range.
func NewInvalidQuantity(productID string, received, sent int) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "Received quantity exceeds sent quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"received":   received,
			"sent":       sent,
		},
	}
}

// NewValidationRequired signals that a kanban stage transition needs a
// validation record before it can proceed.
func NewValidationRequired(productID string, targetStatus string) *AppError {
	return &AppError{
		Code:       CodeValidationRequired,
		Message:    "Status change requires validation",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":    productID,
			"target_status": targetStatus,
		},
	}
}

// NewInvalidStateTransition is returned for operations on terminal records
// (cancel or edit of a received/expired bulk movement).
func NewInvalidStateTransition(entity, from, attempted string) *AppError {
	return &AppError{
		Code:       CodeInvalidStateTransition,
		Message:    fmt.Sprintf("Cannot %s a %s in status %q", attempted, entity, from),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"entity": entity, "status": from, "operation": attempted},
	}
}

// NewAlreadyConfirmed is returned when a confirmation token was already used.
func NewAlreadyConfirmed(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeAlreadyConfirmed,
		Message:    fmt.Sprintf("%s is already confirmed", entity),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewExpired is returned when a confirmation token or movement has expired.
func NewExpired(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    fmt.Sprintf("%s has expired", entity),
		HTTPStatus: http.StatusGone,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewLocationResolutionFailed is the fatal case of area resolution: neither
// an insert nor a subsequent lookup produced a usable location.
func NewLocationResolutionFailed(area string, err error) *AppError {
	return &AppError{
		Code:       CodeLocationResolutionFailed,
		Message:    "Failed to resolve a location for area",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"area": area},
		Err:        err,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another request. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}
