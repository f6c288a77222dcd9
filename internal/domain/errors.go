package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrAddressNotFound    = errors.New("address not found")
	ErrMalformedResponse  = errors.New("malformed geocoder response")
	ErrInvalidWeight      = errors.New("invalid weight")
	ErrMissingCoordinates = errors.New("missing coordinates")
	ErrNoCourierSelected  = errors.New("no courier selected")
	ErrQuoteNotReady      = errors.New("quote not ready")
	ErrNetwork            = errors.New("network error")

	ErrSessionBusy   = errors.New("session busy")
	ErrInvalidState  = errors.New("invalid state")
	ErrOrderNotFound = errors.New("order not found")
)

// Failure reasons, in the order they are matched.
var reasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidInput, "invalid_input"},
	{ErrAddressNotFound, "address_not_found"},
	{ErrMalformedResponse, "malformed_response"},
	{ErrInvalidWeight, "invalid_weight"},
	{ErrMissingCoordinates, "missing_coordinates"},
	{ErrNoCourierSelected, "no_courier_selected"},
	{ErrQuoteNotReady, "quote_not_ready"},
	{ErrSessionBusy, "session_busy"},
	{ErrInvalidState, "invalid_state"},
	{ErrOrderNotFound, "order_not_found"},
	{ErrNetwork, "network"},
}

// FailureReason tags err with a stable reason string. Unknown errors,
// including context cancellation, are reported as "internal".
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
