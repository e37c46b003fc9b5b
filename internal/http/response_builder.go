// Package http exposes the ledger, obligation and split services as a JSON
// API.
//
// This file builds the response envelope shared by every endpoint:
// {"success": true, "data": ...} on success and
// {"success": false, "error": "..."} on failure, with optional extra fields.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finflow/internal/core"
	"finflow/internal/log"
	"finflow/internal/schedule"
	"finflow/internal/split"
)

// JSONResponseBuilder provides a fluent API for envelope responses.
type JSONResponseBuilder struct {
	statusCode int
	body       map[string]any
	headers    map[string]string
}

// NewJSONResponse creates a successful response with status 200.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       map[string]any{"success": true},
		headers:    map[string]string{},
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the primary payload.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	return b.Field("data", v)
}

// Field adds a top-level envelope field next to data.
func (b *JSONResponseBuilder) Field(name string, v any) *JSONResponseBuilder {
	b.body[name] = v
	return b
}

// Fail turns the response into an error envelope.
func (b *JSONResponseBuilder) Fail(code int, message string) *JSONResponseBuilder {
	b.statusCode = code
	b.body["success"] = false
	b.body["error"] = message
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates an error envelope.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Fail(statusCode, message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// requestError marks malformed input detected by the transport layer.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidFrequency,
	core.ErrInvalidStrategy,
	core.ErrInvalidEntryType,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyCategory,
	core.ErrInvalidLeadDays,
	core.ErrNoParticipants,
	core.ErrEmptyParticipant,
	split.ErrInvalidRequest,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// FromError maps a service error to its response. Unexpected errors are
// logged and reported without detail.
func FromError(r *http.Request, err error) *JSONResponseBuilder {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return BadRequestError(reqErr.msg)
	}

	var mismatch *split.MismatchError
	if errors.As(err, &mismatch) {
		b := ErrorResponse(http.StatusUnprocessableEntity, mismatch.Error()).
			Field("discrepancy", mismatch.Discrepancy)
		if mismatch.Strategy == core.SplitPercentage {
			b.Field("percentGap", mismatch.PercentGap)
		}
		return b
	}

	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, split.ErrParticipantNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, schedule.ErrInactiveObligation):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrDateOrdering):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	}
	if isValidationError(err) {
		return BadRequestError(err.Error())
	}

	log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path, "internal", nil)
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}
