package waterfall

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/djlord-it/quizrelay/internal/domain"
	"github.com/djlord-it/quizrelay/internal/metrics"
	"github.com/djlord-it/quizrelay/internal/transport"
)

// DefaultDelay is the pause between a failed strategy and the next one.
const DefaultDelay = time.Second

// settleGrace bounds how long a timed-out strategy may take to release
// what it attached. Strategies that honour cancellation return well within it.
const settleGrace = 2 * time.Second

// ErrNoStrategies is reported when a waterfall is built without steps.
var ErrNoStrategies = errors.New("no delivery strategies configured")

// Strategy is one delivery technique. Attempt must honour ctx: the
// waterfall cancels it when the step's timeout fires.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, rec domain.Record, endpoint string) (string, error)
}

// Step pairs a strategy with its own timeout.
type Step struct {
	Strategy Strategy
	Timeout  time.Duration
}

type Store interface {
	InsertSubmission(ctx context.Context, rec domain.Record) error
	InsertAttempt(ctx context.Context, attempt domain.Attempt) error
	UpdateSubmissionStatus(ctx context.Context, outcome domain.Outcome) error
}

type AnalyticsSink interface {
	Record(ctx context.Context, outcome domain.Outcome)
}

// MetricsSink defines the interface for recording waterfall metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	AttemptCompleted(strategy, errorClass string, duration time.Duration)
	SubmissionOutcome(outcome, method string)
	FallbackAdvanced(from string)
	SubmissionsInFlightIncr()
	SubmissionsInFlightDecr()
}

// Breaker lets a strategy that keeps failing be skipped for a while.
type Breaker interface {
	Allow(key string) error
	RecordSuccess(key string)
	RecordFailure(key string)
}

type Waterfall struct {
	endpoint  string
	steps     []Step
	delay     time.Duration
	store     Store         // optional, nil = disabled
	analytics AnalyticsSink // optional, nil = disabled
	metrics   MetricsSink   // optional, nil = disabled
	breaker   Breaker       // optional, nil = disabled
	wait      func(ctx context.Context, d time.Duration) error
	clock     func() time.Time
	debug     bool
}

// New builds a waterfall that tries steps in the given order against
// endpoint, pausing delay between a failure and the next step.
func New(endpoint string, steps []Step, delay time.Duration) *Waterfall {
	return &Waterfall{
		endpoint: endpoint,
		steps:    append([]Step(nil), steps...),
		delay:    delay,
		wait:     sleep,
		clock:    time.Now,
	}
}

func (w *Waterfall) WithStore(store Store) *Waterfall {
	w.store = store
	return w
}

func (w *Waterfall) WithAnalytics(sink AnalyticsSink) *Waterfall {
	w.analytics = sink
	return w
}

// WithMetrics attaches a metrics sink to the waterfall.
func (w *Waterfall) WithMetrics(sink MetricsSink) *Waterfall {
	w.metrics = sink
	return w
}

func (w *Waterfall) WithBreaker(b Breaker) *Waterfall {
	w.breaker = b
	return w
}

// WithWait replaces the inter-attempt pause, mainly for tests.
func (w *Waterfall) WithWait(wait func(ctx context.Context, d time.Duration) error) *Waterfall {
	w.wait = wait
	return w
}

// WithDebug logs every record field before delivery.
func (w *Waterfall) WithDebug(debug bool) *Waterfall {
	w.debug = debug
	return w
}

func (w *Waterfall) Endpoint() string { return w.endpoint }

// Names returns the strategy names in priority order.
func (w *Waterfall) Names() []string {
	names := make([]string, len(w.steps))
	for i, s := range w.steps {
		names[i] = s.Strategy.Name()
	}
	return names
}

// Submit delivers rec through the first strategy that succeeds. It always
// returns exactly one outcome: a success naming the delivering strategy, or
// a failure carrying the error of the last strategy attempted.
func (w *Waterfall) Submit(ctx context.Context, rec domain.Record) domain.Outcome {
	if w.metrics != nil {
		w.metrics.SubmissionsInFlightIncr()
		defer w.metrics.SubmissionsInFlightDecr()
	}

	if len(w.steps) == 0 {
		log.Printf("waterfall: submission=%s refused: %v", rec.ID(), ErrNoStrategies)
		return domain.Failure(rec.ID(), ErrNoStrategies, nil)
	}

	w.archiveSubmission(ctx, rec)
	if w.debug {
		log.Printf("waterfall: submission=%s prepared fields=%d entries=%v", rec.ID(), rec.Len(), rec.Fields())
	}

	var (
		lastErr  error
		attempts []domain.Attempt
		pause    bool
	)

	for i, step := range w.steps {
		name := step.Strategy.Name()

		if pause {
			if w.metrics != nil {
				w.metrics.FallbackAdvanced(w.steps[i-1].Strategy.Name())
			}
			log.Printf("waterfall: submission=%s next=%s delay=%s", rec.ID(), name, w.delay)
			if err := w.wait(ctx, w.delay); err != nil {
				lastErr = err
				break
			}
		}
		pause = false

		if w.breaker != nil {
			if err := w.breaker.Allow(name); err != nil {
				log.Printf("waterfall: submission=%s strategy=%s skipped: %v", rec.ID(), name, err)
				now := w.clock()
				lastErr = fmt.Errorf("%s: %w", name, err)
				attempts = append(attempts, domain.Attempt{
					ID:           uuid.New(),
					SubmissionID: rec.ID(),
					Strategy:     name,
					Position:     i + 1,
					Error:        lastErr.Error(),
					StartedAt:    now,
					FinishedAt:   now,
				})
				continue
			}
		}

		log.Printf("waterfall: submission=%s trying strategy=%s timeout=%s", rec.ID(), name, step.Timeout)

		startedAt := w.clock()
		payload, err := w.attempt(ctx, step, rec)
		finishedAt := w.clock()

		attempt := domain.Attempt{
			ID:           uuid.New(),
			SubmissionID: rec.ID(),
			Strategy:     name,
			Position:     i + 1,
			StartedAt:    startedAt,
			FinishedAt:   finishedAt,
		}
		if err != nil {
			attempt.Error = err.Error()
		}
		attempts = append(attempts, attempt)

		if w.metrics != nil {
			w.metrics.AttemptCompleted(name, metrics.ClassifyError(err), finishedAt.Sub(startedAt))
		}
		w.archiveAttempt(ctx, attempt)

		if err == nil {
			if w.breaker != nil {
				w.breaker.RecordSuccess(name)
			}
			log.Printf("waterfall: submission=%s delivered strategy=%s", rec.ID(), name)
			outcome := domain.Success(rec.ID(), name, payload, attempts)
			w.finish(ctx, outcome)
			return outcome
		}

		if w.breaker != nil {
			w.breaker.RecordFailure(name)
		}
		log.Printf("waterfall: submission=%s strategy=%s failed err=%v", rec.ID(), name, err)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		pause = i < len(w.steps)-1
	}

	log.Printf("waterfall: submission=%s all strategies failed err=%v", rec.ID(), lastErr)
	outcome := domain.Failure(rec.ID(), lastErr, attempts)
	w.finish(ctx, outcome)
	return outcome
}

type result struct {
	payload string
	err     error
}

// attempt runs one step under its timeout. A panicking strategy fails like
// any other. Once the timeout fires the strategy is given settleGrace to
// return; whatever it returns is reported as a timeout.
func (w *Waterfall) attempt(ctx context.Context, step Step, rec domain.Record) (string, error) {
	name := step.Strategy.Name()
	attemptCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%s: panic: %v", name, r)}
			}
		}()
		payload, err := step.Strategy.Attempt(attemptCtx, rec, w.endpoint)
		done <- result{payload: payload, err: err}
	}()

	var (
		res     result
		expired bool
	)
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		expired = true
		// Let the strategy unwind so its transient elements and callback
		// names are gone before the next step starts.
		grace := time.NewTimer(settleGrace)
		select {
		case res = <-done:
		case <-grace.C:
			log.Printf("waterfall: submission=%s strategy=%s did not settle within %s", rec.ID(), name, settleGrace)
			res = result{err: attemptCtx.Err()}
		}
		grace.Stop()
		if res.err == nil {
			res = result{err: attemptCtx.Err()}
		}
	}

	if expired && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", &transport.TimeoutError{Strategy: name, After: step.Timeout}
	}
	return res.payload, res.err
}

// finish records the outcome as a best-effort side-effect. Archive and
// analytics failures never change the outcome.
func (w *Waterfall) finish(ctx context.Context, outcome domain.Outcome) {
	if w.metrics != nil {
		w.metrics.SubmissionOutcome(string(outcome.Status()), outcome.Method)
	}
	sideCtx := context.WithoutCancel(ctx)
	if w.store != nil {
		if err := w.store.UpdateSubmissionStatus(sideCtx, outcome); err != nil {
			log.Printf("waterfall: submission=%s failed to record outcome: %v", outcome.SubmissionID, err)
		}
	}
	if w.analytics != nil {
		w.analytics.Record(sideCtx, outcome)
	}
}

func (w *Waterfall) archiveSubmission(ctx context.Context, rec domain.Record) {
	if w.store == nil {
		return
	}
	if err := w.store.InsertSubmission(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("waterfall: submission=%s failed to archive: %v", rec.ID(), err)
	}
}

func (w *Waterfall) archiveAttempt(ctx context.Context, attempt domain.Attempt) {
	if w.store == nil {
		return
	}
	if err := w.store.InsertAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		log.Printf("waterfall: submission=%s failed to record attempt: %v", attempt.SubmissionID, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
