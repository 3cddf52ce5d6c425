package dns

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ProviderError is an error returned by a DNS provider API call,
// carrying the HTTP status so callers can classify it.
type ProviderError struct {
	StatusCode int
	Op         string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsTransient reports whether the error is worth retrying: rate limits,
// server-side failures, and network timeouts. Everything else (including
// validation rejections and auth failures) is permanent for the cycle.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// IsAuthFailure reports whether the error indicates the provider rejected
// our credentials. Surfaced as an unready health state, never a crash.
func IsAuthFailure(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden
	}
	return false
}
