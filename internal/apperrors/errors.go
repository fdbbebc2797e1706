package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that a request violates a business precondition.
var ErrValidation = errors.New("validation error")

// ErrPermissionDenied indicates that the actor lacks the required capability.
var ErrPermissionDenied = errors.New("permission denied")

// ErrStateConflict indicates that the requested transition is not legal from the current status.
var ErrStateConflict = errors.New("state conflict")

// ErrConcurrencyConflict indicates a lost race on a shared resource. Callers may retry.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrStorageFailure indicates a persistence I/O error or timeout.
var ErrStorageFailure = errors.New("storage failure")

// Kind classifies an application error.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindPermissionDenied    Kind = "PERMISSION_DENIED"
	KindStateConflict       Kind = "STATE_CONFLICT"
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	KindStorageFailure      Kind = "STORAGE_FAILURE"
	KindInternal            Kind = "INTERNAL"
)

var kindSentinels = map[Kind]error{
	KindNotFound:            ErrNotFound,
	KindValidation:          ErrValidation,
	KindPermissionDenied:    ErrPermissionDenied,
	KindStateConflict:       ErrStateConflict,
	KindConcurrencyConflict: ErrConcurrencyConflict,
	KindStorageFailure:      ErrStorageFailure,
}

// AppError is a structured error carrying a kind and a human-readable message.
// errors.Is matches it against the sentinel of its kind and against the wrapped cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// NewAppError creates an AppError of the given kind.
func NewAppError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *AppError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error {
	return NewAppError(KindNotFound, fmt.Sprintf(format, args...), nil)
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) error {
	return NewAppError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// PermissionDenied returns a KindPermissionDenied error.
func PermissionDenied(format string, args ...any) error {
	return NewAppError(KindPermissionDenied, fmt.Sprintf(format, args...), nil)
}

// StateConflict returns a KindStateConflict error.
func StateConflict(format string, args ...any) error {
	return NewAppError(KindStateConflict, fmt.Sprintf(format, args...), nil)
}

// ConcurrencyConflict returns a KindConcurrencyConflict error.
func ConcurrencyConflict(format string, args ...any) error {
	return NewAppError(KindConcurrencyConflict, fmt.Sprintf(format, args...), nil)
}

// StorageFailure wraps a persistence error. Errors that already carry
// KindStorageFailure are returned unchanged so the original message survives.
func StorageFailure(err error, format string, args ...any) error {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind == KindStorageFailure {
		return err
	}
	return NewAppError(KindStorageFailure, fmt.Sprintf(format, args...), err)
}

// KindOf extracts the kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// MessageOf returns the human-readable message of err without the kind prefix.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus maps an error kind to the status code used by the HTTP layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindStateConflict, KindConcurrencyConflict:
		return http.StatusConflict
	case KindStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
