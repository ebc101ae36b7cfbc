package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) AttemptCompleted(strategy, errorClass string, d time.Duration) {}
func (n *NoopSink) SubmissionOutcome(outcome, method string)                      {}
func (n *NoopSink) FallbackAdvanced(from string)                                  {}
func (n *NoopSink) SubmissionsInFlightIncr()                                      {}
func (n *NoopSink) SubmissionsInFlightDecr()                                      {}
func (n *NoopSink) ProbeCompleted(reachable bool, d time.Duration)                {}
func (n *NoopSink) RedeliveryCompleted(found, delivered int)                      {}
func (n *NoopSink) RedeliveryLeadershipChanged(held bool)                         {}
func (n *NoopSink) RequestServed(route string, statusCode int)                    {}
