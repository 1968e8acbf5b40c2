// Package apperror defines the domain error categories shared by every layer.
//
// ERROR CATEGORIES:
// The repository and service layers never talk about HTTP. They return an
// *AppError wrapping one of the sentinels below, and the handler layer maps
// the sentinel to a status code (and, for HTML pages, to the inline status
// text shown next to the form).
//
//	ErrValidation   → 400  bad form input (missing file, weak password, ...)
//	ErrUnauthorized → 401  bad credentials or no session
//	ErrForbidden    → 403  signed in, but not allowed to touch this record
//	ErrNotFound     → 404  record does not exist
//	ErrConflict     → 409  duplicate account or duplicate follow
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable, safe to show to the user
	Field   string // optional: form field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. The message is supplied by the
// caller because "email already in use" reads better than a generic id.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for failed sign-in attempts and missing sessions.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Message returns the user-facing text for err.
//
// Typed errors carry a message written for end users. Anything else is an
// infrastructure failure (database, blob store) whose raw text may contain
// paths or SQL, so callers get the fallback instead.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
