package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError for transport mapping and tests.
type ErrorType string

const (
	ErrorTypeValidation            ErrorType = "VALIDATION"
	ErrorTypeNotFound              ErrorType = "NOT_FOUND"
	ErrorTypeConflict              ErrorType = "CONFLICT"
	ErrorTypeInsufficientResources ErrorType = "INSUFFICIENT_RESOURCES"
	ErrorTypeInternal              ErrorType = "INTERNAL"
	ErrorTypeExternal              ErrorType = "EXTERNAL_SERVICE"
)

// AppError carries a classified error through the application layers.
// HTTPStatus is the status the REST layer responds with when the error
// reaches a handler.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError reports a missing resource by name.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// NewConflictError reports a state conflict, such as a duplicate or a
// concurrent modification.
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewInsufficientResourcesError reports that a turn's cycles cost
// exceeds the user's balance plus the cycles included in their tier.
func NewInsufficientResourcesError(required, available uint64) *AppError {
	return &AppError{
		Type:       ErrorTypeInsufficientResources,
		Message:    fmt.Sprintf("insufficient cycles: need %d, have %d", required, available),
		HTTPStatus: http.StatusPaymentRequired,
		Details: map[string]interface{}{
			"required_cycles":  required,
			"available_cycles": available,
		},
	}
}

// NewInternalError reports an unexpected failure inside the service.
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewExternalError reports a failure in an upstream service. Model
// provider failures degrade the turn rather than failing it outright,
// so callers usually log these and fall back.
func NewExternalError(service string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Message:    fmt.Sprintf("external service %s error", service),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// GetAppError returns the first AppError in the chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether the chain contains an AppError of the given
// type.
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

func IsInsufficientResources(err error) bool {
	return IsType(err, ErrorTypeInsufficientResources)
}

func IsExternal(err error) bool {
	return IsType(err, ErrorTypeExternal)
}
