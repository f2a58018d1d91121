package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ReasonCityRequired is returned when the request names an empty city
const ReasonCityRequired = "City name is required"

// InvalidRequestError is a locally detected input problem. It never reaches
// the provider.
type InvalidRequestError struct {
	Status int
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request (%d): %s", e.Status, e.Reason)
}

// NewInvalidRequest builds a 400 InvalidRequestError
func NewInvalidRequest(reason string) *InvalidRequestError {
	return &InvalidRequestError{Status: http.StatusBadRequest, Reason: reason}
}

// UpstreamError wraps a transport or decoding failure of the provider call
type UpstreamError struct {
	Op    string
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// ProviderError is an application-level error reported inside a
// well-formed provider payload
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.Code, e.Message)
}

// HTTPStatus maps the provider code onto an HTTP status for our own callers.
// Codes outside 4xx/5xx become 502.
func (e *ProviderError) HTTPStatus() int {
	if e.Code >= 400 && e.Code <= 599 {
		return e.Code
	}
	return http.StatusBadGateway
}

// Kind discriminates the outcome of a lookup
type Kind int

const (
	KindOK Kind = iota
	KindInvalidRequest
	KindUpstreamError
	KindProviderError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidRequest:
		return "invalid_request"
	case KindUpstreamError:
		return "upstream_error"
	case KindProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Unknown errors are treated as upstream failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return KindInvalidRequest
	}

	var provider *ProviderError
	if errors.As(err, &provider) {
		return KindProviderError
	}

	return KindUpstreamError
}

// StatusOf returns the HTTP status our callers should see for err
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return invalid.Status
	}

	var provider *ProviderError
	if errors.As(err, &provider) {
		return provider.HTTPStatus()
	}

	return http.StatusBadGateway
}
