package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from a chat endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s api error %d [%s]: %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed if sent again.
// 529 is Anthropic's "overloaded".
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	}
	return false
}

func IsRateLimitError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusTooManyRequests
}

func IsAuthError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && (ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden)
}

// IsRetryable is true for retryable API errors and for transport failures
// that never produced a status code.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	var te *TransportError
	return errors.As(err, &te)
}

// TransportError wraps a failure to reach the endpoint at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "http request: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
