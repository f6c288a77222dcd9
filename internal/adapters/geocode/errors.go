package geocode

import (
	"courier-dispatch-service/internal/domain"
	"fmt"
	"net/http"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("geocoder status %d: %s", e.Code, e.Body)
}

func (e *httpStatusError) Unwrap() error { return domain.ErrNetwork }

func (e *httpStatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "geocoder transport: " + e.err.Error() }

func (e *transportError) Unwrap() []error { return []error{domain.ErrNetwork, e.err} }

func (e *transportError) Retryable() bool { return true }
