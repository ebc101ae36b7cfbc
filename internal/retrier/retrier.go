// Package retrier redelivers archived submissions whose last waterfall run
// failed.
//
// A submission is picked up once its last run is older than the threshold
// and it has run fewer than MaxRuns times. Each pick-up is a complete new
// waterfall run from the first strategy, with the original record (same id,
// same timestamp). A submission already delivered is never picked up: the
// store refuses to move it back.
package retrier

import (
	"context"
	"log"
	"time"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// Store defines the interface for fetching failed submissions.
type Store interface {
	GetFailedSubmissions(ctx context.Context, olderThan time.Time, maxRuns, limit int) ([]domain.Submission, error)
}

// Submitter runs the waterfall for one record.
type Submitter interface {
	Submit(ctx context.Context, rec domain.Record) domain.Outcome
}

type MetricsSink interface {
	RedeliveryCompleted(found, delivered int)
}

// Config holds retrier configuration.
type Config struct {
	// Interval is how often the retrier runs.
	// Default: 5 minutes.
	Interval time.Duration

	// Threshold is how long after its last run a failed submission is retried.
	// Default: 10 minutes.
	Threshold time.Duration

	// BatchSize is the maximum number of submissions redelivered per cycle.
	// Default: 50.
	BatchSize int

	// MaxRuns bounds the total waterfall runs of one submission.
	// Default: 3.
	MaxRuns int
}

// DefaultConfig returns the default retrier configuration.
func DefaultConfig() Config {
	return Config{
		Interval:  5 * time.Minute,
		Threshold: 10 * time.Minute,
		BatchSize: 50,
		MaxRuns:   3,
	}
}

type Retrier struct {
	config    Config
	store     Store
	submitter Submitter
	metrics   MetricsSink // optional, nil = disabled
	clock     func() time.Time
}

func New(config Config, store Store, submitter Submitter) *Retrier {
	return &Retrier{
		config:    config,
		store:     store,
		submitter: submitter,
		clock:     time.Now,
	}
}

func (r *Retrier) WithMetrics(sink MetricsSink) *Retrier {
	r.metrics = sink
	return r
}

// Run starts the redelivery loop. It blocks until ctx is cancelled.
func (r *Retrier) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	log.Printf("retrier: started (interval=%s, threshold=%s, batch=%d, max_runs=%d)",
		r.config.Interval, r.config.Threshold, r.config.BatchSize, r.config.MaxRuns)

	r.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("retrier: stopped")
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle executes one redelivery pass and reports how many submissions
// were found and how many were delivered.
func (r *Retrier) RunCycle(ctx context.Context) (found, delivered int) {
	now := r.clock().UTC()
	threshold := now.Add(-r.config.Threshold)

	subs, err := r.store.GetFailedSubmissions(ctx, threshold, r.config.MaxRuns, r.config.BatchSize)
	if err != nil {
		// DB error: log and abort cycle. Will retry next interval.
		log.Printf("retrier: failed to fetch submissions: %v", err)
		return 0, 0
	}
	if len(subs) == 0 {
		return 0, 0
	}

	log.Printf("retrier: found %d undelivered submissions", len(subs))

	for _, sub := range subs {
		if ctx.Err() != nil {
			log.Printf("retrier: cycle interrupted, processed %d/%d submissions", found, len(subs))
			break
		}
		found++

		outcome := r.submitter.Submit(ctx, sub.Record())
		if outcome.Succeeded() {
			delivered++
			log.Printf("retrier: redelivered submission=%s method=%s run=%d (age=%s)",
				sub.ID, outcome.Method, sub.Runs+1, now.Sub(sub.CreatedAt).Round(time.Second))
			continue
		}
		log.Printf("retrier: submission=%s still failing run=%d err=%v", sub.ID, sub.Runs+1, outcome.Err)
	}

	if r.metrics != nil {
		r.metrics.RedeliveryCompleted(found, delivered)
	}
	log.Printf("retrier: cycle complete, delivered=%d, failed=%d", delivered, found-delivered)
	return found, delivered
}
