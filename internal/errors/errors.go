// Package errors holds the error taxonomy shared by every cardiowatch
// component.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToStatus mapping for the HTTP surface
// - Error wrapping utilities
// - A validation error collector used by the config loader
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Storage errors
	ErrStorageCorrupt  = errors.New("storage corrupt")
	ErrPersistFailure  = errors.New("persist failed")
	ErrInvalidCapacity = errors.New("invalid capacity")

	// Analysis errors. ErrInsufficientData is informational: analysis steps
	// fall back to an all-normal classification instead of returning it.
	ErrInsufficientData = errors.New("insufficient data")

	// Transport errors
	ErrTransport     = errors.New("transport failure")
	ErrNotConfigured = errors.New("not configured")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidValue  = errors.New("invalid value")

	// Lifecycle errors
	ErrAlreadyRunning = errors.New("already running")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidCapacity)
}

// IsRetriable returns true if the operation may succeed when repeated.
// A dropped write is retriable: the canonical file was left untouched.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrPersistFailure) ||
		errors.Is(err, ErrTransport)
}

// ============================================================================
// Error to HTTP status mapping
// ============================================================================

// ErrorToStatus maps an error to the HTTP status code the dashboard answers with.
func ErrorToStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case Is(err, ErrNotConfigured):
		return http.StatusNotImplemented
	case Is(err, ErrTransport):
		return http.StatusBadGateway
	case Is(err, ErrPersistFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// ============================================================================
// Error constructors with context
// ============================================================================

// NewPersistFailure marks cause as a dropped write of path.
func NewPersistFailure(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistFailure, path, cause)
}

// NewStorageCorrupt marks cause as an unrecoverable read of path.
func NewStorageCorrupt(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageCorrupt, path, cause)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidValue)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
