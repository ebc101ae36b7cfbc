// Package circuitbreaker skips a delivery strategy that keeps failing until
// a cooldown has passed.
package circuitbreaker

import (
	"errors"
	"log"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type strategyState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

// CircuitBreaker tracks consecutive failures per strategy name. A
// threshold of zero or less disables it: every strategy is always allowed.
type CircuitBreaker struct {
	mu        sync.Mutex
	states    map[string]*strategyState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		states:    make(map[string]*strategyState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

func (cb *CircuitBreaker) Enabled() bool { return cb.threshold > 0 }

// Allow reports whether strategy may run. Once the cooldown of an open
// circuit passes, exactly one trial run is let through.
func (cb *CircuitBreaker) Allow(strategy string) error {
	if !cb.Enabled() {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[strategy]
	if !ok {
		return nil
	}

	switch s.state {
	case stateOpen:
		if cb.now().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) RecordSuccess(strategy string) {
	if !cb.Enabled() {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[strategy]
	if !ok {
		return
	}
	if s.state != stateClosed {
		log.Printf("circuitbreaker: strategy=%s closed", strategy)
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
}

func (cb *CircuitBreaker) RecordFailure(strategy string) {
	if !cb.Enabled() {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[strategy]
	if !ok {
		s = &strategyState{}
		cb.states[strategy] = s
	}

	s.consecutiveFailures++
	if s.state == stateHalfOpen || s.consecutiveFailures >= cb.threshold {
		if s.state != stateOpen {
			log.Printf("circuitbreaker: strategy=%s open failures=%d cooldown=%s", strategy, s.consecutiveFailures, cb.cooldown)
		}
		s.state = stateOpen
		s.openedAt = cb.now()
	}
}

// State returns "closed", "open" or "half-open" for strategy.
func (cb *CircuitBreaker) State(strategy string) string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if s, ok := cb.states[strategy]; ok {
		return s.state.String()
	}
	return stateClosed.String()
}
