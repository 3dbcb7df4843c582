package errors

import (
	"net/http"

	"accounts/internal/errors"
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

// Predefined error types. Register and Login return exactly one of these (or nil).
var (
	// ErrInvalidInput means the caller sent an empty or malformed field.
	ErrInvalidInput = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"Request has missing or invalid fields",
		"",
	)

	// ErrUserAlreadyExists covers both the pre-check and a lost insert race.
	// It never says whether the username or the email collided.
	ErrUserAlreadyExists = NewBaseError(
		http.StatusConflict,
		"USER_ALREADY_EXISTS",
		"Username or email is already registered",
		"",
	)

	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"No active account with that username",
		"",
	)

	ErrWrongPassword = NewBaseError(
		http.StatusUnauthorized,
		"WRONG_PASSWORD",
		"Password does not match",
		"",
	)

	// ErrInvalidCredentials replaces ErrUserNotFound and ErrWrongPassword on login
	// when login failures are unified.
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid username or password",
		"",
	)

	// ErrStoreUnavailable is the only retryable outcome.
	ErrStoreUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"STORE_ERROR",
		"User store is unavailable, please retry",
		"",
	)

	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"Missing or invalid admin key",
		"",
	)

	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// StoreError is an infrastructure failure of the user store. It matches
// ErrStoreUnavailable under errors.Is and unwraps to the underlying cause.
type StoreError struct {
	err     error
	details string
}

// NewStoreError wraps a store failure.
func NewStoreError(err error, details string) error {
	return errors.WithStack(&StoreError{err: err, details: details})
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return errors.Wrap(e.err, e.details).Error()
}

func (e *StoreError) Unwrap() error {
	return e.err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *StoreError) HTTPCode() int {
	return ErrStoreUnavailable.HTTPCode()
}

func (e *StoreError) ErrorCode() string {
	return ErrStoreUnavailable.ErrorCode()
}

func (e *StoreError) Message() string {
	return ErrStoreUnavailable.Message()
}

// Details returns the operation that failed, never the driver message.
func (e *StoreError) Details() string {
	return e.details
}

// DatabaseExecuteError represents a failed statement inside a store implementation.
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) error {
	return errors.WithStack(&DatabaseExecuteError{
		err:     err,
		details: details,
	})
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed: "+e.details).Error()
}

func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// Retryable reports whether the caller may resubmit the same request.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
