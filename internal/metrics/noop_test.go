package metrics

import (
	"testing"
	"time"
)

func TestNoopSink_AllMethods(t *testing.T) {
	// Verify that calling all methods on NoopSink does not panic.
	s := NewNoopSink()

	s.AttemptCompleted("fetch", ErrorClassTimeout, 15*time.Second)
	s.SubmissionOutcome("delivered", "xhr")
	s.FallbackAdvanced("fetch")
	s.SubmissionsInFlightIncr()
	s.SubmissionsInFlightDecr()
	s.ProbeCompleted(true, 10*time.Millisecond)
	s.RedeliveryCompleted(3, 1)
	s.RedeliveryLeadershipChanged(true)
	s.RequestServed("/health", 200)
}

// Verify NoopSink implements Sink interface.
var _ Sink = (*NoopSink)(nil)
