package errors

import (
	"net/http"

	"ordinem/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// ErrNotAuthenticated is returned when an operation requiring a user
	// context was invoked without one.
	ErrNotAuthenticated = NewBaseError(
		http.StatusUnauthorized,
		"NOT_AUTHENTICATED",
		"Authentication required",
		"",
	)

	// ErrLookupFailed is returned when the remote product database call
	// failed at the transport or HTTP level. Distinct from a clean
	// not-found.
	ErrLookupFailed = NewBaseError(
		http.StatusBadGateway,
		"LOOKUP_FAILED",
		"Product lookup could not be completed",
		"",
	)

	// ErrProductNotFound is returned when the barcode has no record in the
	// remote product database.
	ErrProductNotFound = NewBaseError(
		http.StatusNotFound,
		"PRODUCT_NOT_FOUND",
		"No product found for this barcode",
		"",
	)

	// ErrDeviceUnreachable marks a linked device whose record could not be
	// read. Recoverable: the registry substitutes a placeholder.
	ErrDeviceUnreachable = NewBaseError(
		http.StatusServiceUnavailable,
		"DEVICE_UNREACHABLE",
		"Device record could not be read",
		"",
	)

	// ErrWriteFailed is returned when an underlying backend write
	// (mark-read, delete, link/unlink) failed. Always propagated; these are
	// user-initiated state changes and must be visible on failure.
	ErrWriteFailed = NewBaseError(
		http.StatusBadGateway,
		"WRITE_FAILED",
		"Backend write failed",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrInvalidQRCode = NewBaseError(
		http.StatusBadRequest,
		"INVALID_QR_CODE",
		"QR code is not a valid pairing code",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)
)
