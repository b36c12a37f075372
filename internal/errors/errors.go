// Package errors provides explicit, human-readable error types for studentauth.
// Every error carries a Reason and a Suggestion so callers can act on it.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all studentauth errors.
type AppError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code and HTTP status mapping.
type ErrorCode int

// Codes are categories, not exit codes; see ExitCode and HTTPStatus.
const (
	CodeValidation ErrorCode = iota + 1
	CodeAuth
	CodeConflict
	CodeNotFound
	CodeInternal
)

func (e *AppError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// AppErr returns the embedded AppError. It lets callers treat every typed
// error in this package uniformly through errors.As.
func (e *AppError) AppErr() *AppError {
	return e
}

type appErrorer interface {
	AppErr() *AppError
}

// From extracts the AppError from err, if any.
func From(err error) (*AppError, bool) {
	var ae appErrorer
	if stderrors.As(err, &ae) {
		return ae.AppErr(), true
	}
	return nil, false
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	ae, ok := From(err)
	if !ok {
		return 4
	}
	switch ae.Code {
	case CodeValidation:
		return 1
	case CodeAuth:
		return 2
	case CodeConflict, CodeNotFound:
		return 3
	default:
		return 4
	}
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	ae, ok := From(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrFieldInvalid is returned when a submitted form field fails validation.
// Message is the exact string shown to the user.
type ErrFieldInvalid struct {
	AppError
	Field string
}

// NewFieldInvalid creates a new ErrFieldInvalid.
func NewFieldInvalid(field, message string) *ErrFieldInvalid {
	return &ErrFieldInvalid{
		AppError: AppError{
			Code:       CodeValidation,
			Message:    message,
			Reason:     fmt.Sprintf("field '%s' failed validation", field),
			Suggestion: "correct the field and resubmit the form",
		},
		Field: field,
	}
}

// ErrEmailTaken is returned when a registration reuses an existing email.
type ErrEmailTaken struct {
	AppError
	Email string
}

// NewEmailTaken creates a new ErrEmailTaken.
func NewEmailTaken(email string) *ErrEmailTaken {
	return &ErrEmailTaken{
		AppError: AppError{
			Code:       CodeConflict,
			Message:    "Email already registered!",
			Reason:     fmt.Sprintf("a student with email %s already exists", email),
			Suggestion: "log in instead, or register with a different email",
		},
		Email: email,
	}
}

// ErrStudentNotFound is returned when a referenced student does not exist.
type ErrStudentNotFound struct {
	AppError
	Key string
}

// NewStudentNotFound creates a new ErrStudentNotFound.
func NewStudentNotFound(key string) *ErrStudentNotFound {
	return &ErrStudentNotFound{
		AppError: AppError{
			Code:       CodeNotFound,
			Message:    fmt.Sprintf("student not found: %s", key),
			Reason:     "no student registered with this key",
			Suggestion: "list students with 'studentauth students list'",
		},
		Key: key,
	}
}

// ErrAuthFailed is returned when authentication fails.
type ErrAuthFailed struct {
	AppError
}

// NewInvalidCredentials is returned for an unknown email or a wrong password.
// The two cases are deliberately indistinguishable.
func NewInvalidCredentials() *ErrAuthFailed {
	return &ErrAuthFailed{
		AppError: AppError{
			Code:       CodeAuth,
			Message:    "Invalid credentials",
			Reason:     "email or password did not match",
			Suggestion: "check your email and password",
		},
	}
}

// NewAuthFailed creates a new ErrAuthFailed.
func NewAuthFailed(reason string) *ErrAuthFailed {
	return &ErrAuthFailed{
		AppError: AppError{
			Code:       CodeAuth,
			Message:    "authentication failed",
			Reason:     reason,
			Suggestion: "log in again to obtain a new token",
		},
	}
}

// NewAuthExpired is returned when a session token has expired or was revoked.
func NewAuthExpired() *ErrAuthFailed {
	return &ErrAuthFailed{
		AppError: AppError{
			Code:       CodeAuth,
			Message:    "authentication expired",
			Reason:     "session has expired or was logged out",
			Suggestion: "log in again to obtain a new token",
		},
	}
}

// ErrDatabaseUnavailable is returned when the student store cannot be reached.
type ErrDatabaseUnavailable struct {
	AppError
}

// NewDatabaseUnavailable creates a new ErrDatabaseUnavailable.
func NewDatabaseUnavailable(reason string) *ErrDatabaseUnavailable {
	return &ErrDatabaseUnavailable{
		AppError: AppError{
			Code:       CodeInternal,
			Message:    "database unavailable",
			Reason:     reason,
			Suggestion: "check database settings with 'studentauth doctor'",
		},
	}
}

// ErrMigrationFailed is returned when a schema migration cannot be applied.
type ErrMigrationFailed struct {
	AppError
	Migration string
}

// NewMigrationFailed creates a new ErrMigrationFailed.
func NewMigrationFailed(name string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		AppError: AppError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("migration failed: %s", name),
			Reason:     "the migration could not be applied",
			Suggestion: "inspect the schema_migrations table and the migration SQL",
			Cause:      cause,
		},
		Migration: name,
	}
}

// ErrInvalidConfig is returned when configuration is inconsistent.
type ErrInvalidConfig struct {
	AppError
	Field string
}

// NewInvalidConfig creates a new ErrInvalidConfig.
func NewInvalidConfig(field, reason string) *ErrInvalidConfig {
	return &ErrInvalidConfig{
		AppError: AppError{
			Code:       CodeValidation,
			Message:    "invalid configuration",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "check ~/.studentauth/config.yaml or STUDENTAUTH_* environment variables",
		},
		Field: field,
	}
}

// ErrServerUnavailable is returned by the CLI when the server cannot be reached.
type ErrServerUnavailable struct {
	AppError
	Endpoint string
}

// NewServerUnavailable creates a new ErrServerUnavailable.
func NewServerUnavailable(endpoint, reason string) *ErrServerUnavailable {
	return &ErrServerUnavailable{
		AppError: AppError{
			Code:       CodeInternal,
			Message:    "server unavailable",
			Reason:     reason,
			Suggestion: "check the endpoint with 'studentauth doctor'",
		},
		Endpoint: endpoint,
	}
}
