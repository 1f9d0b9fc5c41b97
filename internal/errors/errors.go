// Package errors maps domain errors onto the JSON error envelope returned by
// every non-2xx HTTP response:
//
//	{"error": {"code": "...", "message": "...", "request_id": "...", "details": {...}}}
//
// The taxonomy is small: validation failures are client errors rejected
// before any state mutation, absences are NOT_FOUND (deliberately not
// distinguishing "never existed" from "not yet ready"), and everything else
// is an internal error.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/srmlabs/logmill/pkg/logjob"
	"github.com/srmlabs/logmill/pkg/logreader"
	"github.com/srmlabs/logmill/pkg/logset"
)

// Stable error codes carried in the envelope.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// HTTPError is the envelope payload.
type HTTPError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HTTPErrorResponse is the body of every non-2xx response.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

type requestIDKey struct{}

// WithRequestID stores the request correlation id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request correlation id, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WriteError writes an envelope with the given status and code.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	resp := HTTPErrorResponse{Error: HTTPError{
		Code:    code,
		Message: message,
		Details: details,
	}}
	if r != nil {
		resp.Error.RequestID = RequestIDFromContext(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// RespondWithError classifies err and writes the matching envelope.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	WriteError(w, r, status, code, err.Error(), nil)
}

// Classify maps a domain error to an HTTP status and envelope code.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, logjob.ErrInvalidDate),
		errors.Is(err, logset.ErrInvalidDate),
		errors.Is(err, logreader.ErrInvalidLimit):
		return http.StatusBadRequest, CodeValidationError
	case errors.Is(err, logjob.ErrNotFound),
		errors.Is(err, logreader.ErrNotFound),
		errors.Is(err, logset.ErrDirNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, logjob.ErrArtifactMissing):
		return http.StatusInternalServerError, CodeInternalError
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}
