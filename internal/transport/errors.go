package transport

import (
	"errors"
	"fmt"
	"time"
)

// Strategy names, in the waterfall's priority order.
const (
	NameFetch  = "fetch"
	NameXHR    = "xhr"
	NameIframe = "iframe"
	NameJSONP  = "jsonp"
)

// NetworkError reports a connection-level failure.
type NetworkError struct {
	Strategy string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Strategy, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError reports a response whose status the strategy does not accept.
type HTTPStatusError struct {
	Strategy   string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: http error status: %d", e.Strategy, e.StatusCode)
}

// TimeoutError reports that a strategy did not settle within its bound.
type TimeoutError struct {
	Strategy string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timeout after %s", e.Strategy, e.After)
}

// TransportError reports a strategy-specific failure such as a frame or
// script that fired its error event.
type TransportError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Error kinds returned by Kind.
const (
	KindNetwork   = "network"
	KindHTTP      = "http_status"
	KindTimeout   = "timeout"
	KindTransport = "transport"
	KindOther     = "other"
)

// Kind reports which member of the error taxonomy err belongs to. A
// strategy-specific failure is reported as transport even when it wraps a status.
func Kind(err error) string {
	var (
		netErr     *NetworkError
		statusErr  *HTTPStatusError
		timeoutErr *TimeoutError
		trErr      *TransportError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &trErr):
		return KindTransport
	case errors.As(err, &statusErr):
		return KindHTTP
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindOther
	}
}
