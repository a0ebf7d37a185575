// Package apperr defines the stable error identifiers shared across the
// proxy pipeline and surfaced verbatim in JSON error bodies and log lines.
package apperr

import "net/http"

// Kind is a stable identifier that appears in response bodies and logs.
type Kind string

const (
	KindMissingAuth      Kind = "missing_auth"
	KindInvalidKey       Kind = "invalid_key"
	KindTenantDisabled   Kind = "tenant_disabled"
	KindModelNotAllowed  Kind = "model_not_allowed"
	KindLimitExceeded    Kind = "limit_exceeded"
	KindNoUpstream       Kind = "no_upstream"
	KindUpstreamError    Kind = "upstream_error"
	KindInvalidRequest   Kind = "invalid_request_error"
	KindServiceUnavail   Kind = "service_unavailable"
	KindInternal         Kind = "internal_error"
)

// Error is the error type returned by every component on the request path.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an *Error with the given kind, status and message.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// MissingAuth builds the 401 missing_auth error.
func MissingAuth(message string) *Error {
	return New(KindMissingAuth, http.StatusUnauthorized, message)
}

// InvalidKey builds the 401 invalid_key error.
func InvalidKey(message string) *Error {
	return New(KindInvalidKey, http.StatusUnauthorized, message)
}

// TenantDisabled builds the 403 tenant_disabled error.
func TenantDisabled(message string) *Error {
	return New(KindTenantDisabled, http.StatusForbidden, message)
}

// ModelNotAllowed builds the 403 model_not_allowed error.
func ModelNotAllowed(message string) *Error {
	return New(KindModelNotAllowed, http.StatusForbidden, message)
}

// LimitExceeded builds the 429 limit_exceeded error.
func LimitExceeded(message string) *Error {
	return New(KindLimitExceeded, http.StatusTooManyRequests, message)
}

// NoUpstream builds the 503 no_upstream error.
func NoUpstream(message string) *Error {
	return New(KindNoUpstream, http.StatusServiceUnavailable, message)
}

// UpstreamError builds the 502 upstream_error error.
func UpstreamError(message string) *Error {
	return New(KindUpstreamError, http.StatusBadGateway, message)
}

// InvalidRequest builds the 400 invalid_request_error error.
func InvalidRequest(message string) *Error {
	return New(KindInvalidRequest, http.StatusBadRequest, message)
}

// ServiceUnavailable builds the 503 service_unavailable error.
func ServiceUnavailable(message string) *Error {
	return New(KindServiceUnavail, http.StatusServiceUnavailable, message)
}

// Internal builds the 500 internal_error error.
func Internal(message string) *Error {
	return New(KindInternal, http.StatusInternalServerError, message)
}

// As extracts an *Error from err, falling back to a generic internal_error
// so callers always have a Kind/Status pair to render.
func As(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal(err.Error())
}
