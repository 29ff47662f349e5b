package api

import (
	"errors"
	"net/http"
)

// Sentinel classes every failure maps to; match them with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("server unavailable")
)

// Error is a non-2xx API response (or a client-side validation failure, with
// Status 0). Fields holds per-field messages as sent by the server.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return ErrValidation.Error()
}

// Unwrap maps the response onto a sentinel. Field errors always mean
// ErrValidation. Apart from 401/403 and 404, every other 4xx (a bare 400 with
// only a message, 409, 422, ...) is a rejection of the request as sent and
// also maps to ErrValidation, so every failure has a class.
func (e *Error) Unwrap() error {
	switch {
	case len(e.Fields) > 0:
		return ErrValidation
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= http.StatusInternalServerError:
		return ErrUnavailable
	case e.Status >= http.StatusBadRequest, e.Status == 0:
		return ErrValidation
	default:
		return nil
	}
}

// FieldError returns the first message reported for field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// NewValidationError builds a client-side validation failure with one message per field.
func NewValidationError(message string, fields map[string]string) *Error {
	e := &Error{Message: message, Fields: make(map[string][]string, len(fields))}
	for k, v := range fields {
		e.Fields[k] = []string{v}
	}
	return e
}

// Message picks the text to show for err: the server's message when there is
// one, fallback otherwise.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// FieldErrors flattens the per-field messages of err to their first entry.
// It returns nil when err carries no field errors.
func FieldErrors(err error) map[string]string {
	var apiErr *Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(apiErr.Fields))
	for k := range apiErr.Fields {
		if msg := apiErr.FieldError(k); msg != "" {
			out[k] = msg
		}
	}
	return out
}
