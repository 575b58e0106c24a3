// Package errors defines the errors the media service reports to clients.
// An *AppError carries the code and message rendered in the
// {success:false, error, code} body; plain errors wrapping one of the
// sentinels are mapped through Describe.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Response codes.
const (
	CodeMissingField = "MISSING_FIELD"
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUpstream     = "UPSTREAM_FAILURE"
	CodeInternal     = "INTERNAL_ERROR"
)

// Sentinels matched with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrMissingField = errors.New("missing required field")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
	ErrInternal     = errors.New("internal error")
)

const internalMessage = "an internal error occurred"

type kind struct {
	sentinel error
	status   int
	code     string
}

// kinds is ordered: the first sentinel an error wraps decides its kind.
var kinds = []kind{
	{ErrMissingField, http.StatusBadRequest, CodeMissingField},
	{ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{ErrNotFound, http.StatusNotFound, CodeNotFound},
	{ErrConflict, http.StatusConflict, CodeConflict},
	{ErrUpstream, http.StatusInternalServerError, CodeUpstream},
}

// AppError is an error with a client-facing code, message and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(k kind, message string, cause error) *AppError {
	err := k.sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", k.sentinel, cause)
	}
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: err}
}

// MissingField reports a required identifier or field that was not
// supplied at all, e.g. "Product ID is required".
func MissingField(field string) *AppError {
	return newAppError(kinds[0], field+" is required", nil)
}

// InvalidInput reports a request that was supplied but is unacceptable.
func InvalidInput(message string) *AppError {
	return newAppError(kinds[1], message, nil)
}

// NotFound reports a missing product or record.
func NotFound(message string) *AppError {
	return newAppError(kinds[2], message, nil)
}

// Conflict reports a write that collides with existing state.
func Conflict(message string) *AppError {
	return newAppError(kinds[3], message, nil)
}

// UpstreamFailure reports a failed call to the remote media service. The
// cause is kept for logging and never shown to the client.
func UpstreamFailure(message string, cause error) *AppError {
	return newAppError(kinds[4], message, cause)
}

// Internal reports an unexpected failure.
func Internal(cause error) *AppError {
	err := ErrInternal
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrInternal, cause)
	}
	return &AppError{Code: CodeInternal, Message: internalMessage, Status: http.StatusInternalServerError, Err: err}
}

// Describe returns the status, code and client message for err. Errors
// that are neither an *AppError nor wrap a sentinel are internal, and
// their text is not exposed.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	for _, k := range kinds {
		if !errors.Is(err, k.sentinel) {
			continue
		}
		if k.status == http.StatusBadRequest {
			return k.status, k.code, err.Error()
		}
		if k.status >= http.StatusInternalServerError {
			return k.status, k.code, internalMessage
		}
		return k.status, k.code, k.sentinel.Error()
	}
	return http.StatusInternalServerError, CodeInternal, internalMessage
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}
