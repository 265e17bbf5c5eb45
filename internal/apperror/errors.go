// Package apperror defines the error taxonomy shared by the portal agent.
//
// Every failure that crosses an operation boundary is one of four kinds:
//   - ValidationError: malformed administrative input or a request the backend rejected as invalid
//   - AuthError: 401/403, the session or the actor's rights are not sufficient
//   - TransportError: network failure, 5xx, or a broken push channel
//   - NotFoundError: 404; for the active call poll this is the normal "no call" outcome
//
// Callers branch with the Is* helpers which unwrap through errors.As.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports input that cannot be applied.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}

	return "validation error: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthError reports a rejected session (401) or missing rights (403).
type AuthError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Forbidden reports whether the actor is authenticated but lacks rights.
func (e *AuthError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// TransportError reports a failure to reach the backend or the push channel.
type TransportError struct {
	Operation  string `json:"operation"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error during %s to %s: status %d", e.Operation, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("transport error during %s to %s: %v", e.Operation, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id,omitempty"`
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	}

	return e.Resource + " not found"
}

// NewValidation creates a ValidationError for a field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewAuth creates an AuthError for the given HTTP status.
func NewAuth(statusCode int, message string) *AuthError {
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &AuthError{StatusCode: statusCode, Message: message}
}

// IsValidation checks if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuth checks if err is or wraps an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsTransport checks if err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsNotFound checks if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// HTTPStatus maps an error of the taxonomy to the status code the bridge answers with.
func HTTPStatus(err error) int {
	var authErr *AuthError

	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &authErr):
		return authErr.StatusCode
	case IsNotFound(err):
		return http.StatusNotFound
	case IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
