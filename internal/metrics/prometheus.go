package metrics

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Waterfall metrics
	attemptsTotal       *prometheus.CounterVec
	attemptDuration     *prometheus.HistogramVec
	outcomesTotal       *prometheus.CounterVec
	fallbacksTotal      *prometheus.CounterVec
	submissionsInFlight prometheus.Gauge

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram

	// Retrier metrics
	redeliveryFoundTotal     prometheus.Counter
	redeliveryDeliveredTotal prometheus.Counter
	redeliveryLeader         prometheus.Gauge

	// API metrics
	requestsTotal *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initWaterfallMetrics(reg)
	s.initProbeMetrics(reg)
	s.initRetrierMetrics(reg)
	s.initAPIMetrics(reg)
	return s
}

func (s *PrometheusSink) initWaterfallMetrics(reg prometheus.Registerer) {
	s.attemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizrelay_waterfall_attempts_total",
		Help: "Total number of strategy attempts.",
	}, []string{"strategy", "error_class"})

	s.attemptDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quizrelay_waterfall_attempt_duration_seconds",
		Help:    "Strategy attempt latency in seconds (excludes inter-attempt delay).",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 20},
	}, []string{"strategy"})

	s.outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizrelay_waterfall_outcomes_total",
		Help: "Total number of final submission outcomes.",
	}, []string{"outcome", "method"})

	s.fallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizrelay_waterfall_fallbacks_total",
		Help: "Total number of times the waterfall moved past a failed strategy.",
	}, []string{"from"})

	s.submissionsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quizrelay_waterfall_submissions_in_flight",
		Help: "Number of submissions currently being delivered.",
	})

	s.register(reg, s.attemptsTotal, "quizrelay_waterfall_attempts_total")
	s.register(reg, s.attemptDuration, "quizrelay_waterfall_attempt_duration_seconds")
	s.register(reg, s.outcomesTotal, "quizrelay_waterfall_outcomes_total")
	s.register(reg, s.fallbacksTotal, "quizrelay_waterfall_fallbacks_total")
	s.register(reg, s.submissionsInFlight, "quizrelay_waterfall_submissions_in_flight")
}

func (s *PrometheusSink) initProbeMetrics(reg prometheus.Registerer) {
	s.probesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizrelay_probe_checks_total",
		Help: "Total number of endpoint connectivity checks.",
	}, []string{"reachable"})
	s.probeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quizrelay_probe_duration_seconds",
		Help:    "Connectivity check latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	s.register(reg, s.probesTotal, "quizrelay_probe_checks_total")
	s.register(reg, s.probeDuration, "quizrelay_probe_duration_seconds")
}

func (s *PrometheusSink) initRetrierMetrics(reg prometheus.Registerer) {
	s.redeliveryFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizrelay_retrier_found_total",
		Help: "Total number of failed submissions picked up for redelivery.",
	})
	s.redeliveryDeliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizrelay_retrier_delivered_total",
		Help: "Total number of failed submissions delivered on redelivery.",
	})

	s.redeliveryLeader = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quizrelay_retrier_leader",
		Help: "1 while this instance holds the redelivery lock.",
	})

	s.register(reg, s.redeliveryFoundTotal, "quizrelay_retrier_found_total")
	s.register(reg, s.redeliveryDeliveredTotal, "quizrelay_retrier_delivered_total")
	s.register(reg, s.redeliveryLeader, "quizrelay_retrier_leader")
}

func (s *PrometheusSink) initAPIMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizrelay_api_requests_total",
		Help: "Total number of API requests served.",
	}, []string{"route", "code"})

	s.register(reg, s.requestsTotal, "quizrelay_api_requests_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Waterfall metrics implementation

func (s *PrometheusSink) AttemptCompleted(strategy, errorClass string, duration time.Duration) {
	s.attemptsTotal.WithLabelValues(strategy, errorClass).Inc()
	s.attemptDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

func (s *PrometheusSink) SubmissionOutcome(outcome, method string) {
	s.outcomesTotal.WithLabelValues(outcome, method).Inc()
}

func (s *PrometheusSink) FallbackAdvanced(from string) {
	s.fallbacksTotal.WithLabelValues(from).Inc()
}

func (s *PrometheusSink) SubmissionsInFlightIncr() {
	s.submissionsInFlight.Inc()
}

func (s *PrometheusSink) SubmissionsInFlightDecr() {
	s.submissionsInFlight.Dec()
}

// Probe metrics implementation

func (s *PrometheusSink) ProbeCompleted(reachable bool, duration time.Duration) {
	s.probesTotal.WithLabelValues(strconv.FormatBool(reachable)).Inc()
	s.probeDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) RedeliveryCompleted(found, delivered int) {
	s.redeliveryFoundTotal.Add(float64(found))
	s.redeliveryDeliveredTotal.Add(float64(delivered))
}

func (s *PrometheusSink) RedeliveryLeadershipChanged(held bool) {
	if held {
		s.redeliveryLeader.Set(1)
	} else {
		s.redeliveryLeader.Set(0)
	}
}

func (s *PrometheusSink) RequestServed(route string, statusCode int) {
	s.requestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
}
