package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/djlord-it/quizrelay/internal/transport"
)

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Waterfall metrics
	AttemptCompleted(strategy, errorClass string, duration time.Duration)
	SubmissionOutcome(outcome, method string)
	FallbackAdvanced(from string)
	SubmissionsInFlightIncr()
	SubmissionsInFlightDecr()

	// Probe metrics
	ProbeCompleted(reachable bool, duration time.Duration)

	// Retrier metrics
	RedeliveryCompleted(found, delivered int)
	RedeliveryLeadershipChanged(held bool)

	// API metrics
	RequestServed(route string, statusCode int)
}

// ErrorClass constants for the AttemptCompleted metric.
const (
	ErrorClassNone      = "none"
	ErrorClass4xx       = "4xx"
	ErrorClass5xx       = "5xx"
	ErrorClassStatus    = "other_status"
	ErrorClassTimeout   = "timeout"
	ErrorClassNetwork   = "network"
	ErrorClassTransport = "transport"
	ErrorClassCancelled = "cancelled"
	ErrorClassOther     = "other"
)

// ClassifyError maps an attempt error to an error class. A nil error is
// ErrorClassNone.
func ClassifyError(err error) string {
	if err == nil {
		return ErrorClassNone
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassCancelled
	}

	switch transport.Kind(err) {
	case transport.KindTimeout:
		return ErrorClassTimeout
	case transport.KindTransport:
		return ErrorClassTransport
	case transport.KindNetwork:
		return ErrorClassNetwork
	case transport.KindHTTP:
		var se *transport.HTTPStatusError
		errors.As(err, &se)
		return classifyStatus(se.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	return ErrorClassOther
}

func classifyStatus(code int) string {
	switch {
	case code >= 400 && code < 500:
		return ErrorClass4xx
	case code >= 500:
		return ErrorClass5xx
	default:
		return ErrorClassStatus
	}
}
