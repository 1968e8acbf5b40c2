package handler

// RESPONSE HELPERS:
// Pages and the JSON API share one mapping from domain errors to status
// codes. The service layer returns apperror sentinels; only this file knows
// that ErrNotFound means 404.
//
// CONSISTENT ERROR FORMAT:
// Every JSON error has the same shape:
//
//	{"error": "not_found", "message": "program not found with id abc123"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/livt/internal/apperror"
)

// genericMessage replaces the text of errors that are not *AppError. Raw
// infrastructure errors can carry SQL or file paths.
const genericMessage = "An internal error occurred"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable, e.g. "not_found"
	Message string `json:"message"` // human-readable
}

// writeJSON sends data as JSON. Headers and status go out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error to its HTTP status and machine-readable
// type. Anything untyped is a 500.
//
// errors.Is walks the whole chain, so a service error such as
//
//	fmt.Errorf("service/program: deleting p1: %w", apperror.NotFound(...))
//
// still maps to 404.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError sends err as an ErrorResponse. Only *AppError messages reach
// the client.
func writeError(w http.ResponseWriter, err error) {
	status, errorType := errorStatus(err)
	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: apperror.Message(err, genericMessage),
	})
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields
// and bodies over 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// logFailure logs err at error level for 5xx responses and at debug level
// for expected client errors.
func logFailure(logger *slog.Logger, r *http.Request, msg string, err error) {
	status, _ := errorStatus(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.LogAttrs(r.Context(), level, msg,
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}

// messageFor is the inline status text shown on pages for err.
func messageFor(err error) string {
	return apperror.Message(err, "Something went wrong. Please try again.")
}
