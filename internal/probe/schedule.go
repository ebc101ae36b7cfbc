package probe

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Checker runs one connectivity check.
type Checker interface {
	Check(ctx context.Context) Result
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule runs a Checker on a cron expression, evaluated in its own zone.
type Schedule struct {
	checker Checker
	sched   cron.Schedule
	loc     *time.Location
	clock   func() time.Time
}

func NewSchedule(checker Checker, expression, timezone string) (*Schedule, error) {
	sched, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse cron: %w", err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return &Schedule{checker: checker, sched: sched, loc: loc, clock: time.Now}, nil
}

// Next returns the first run strictly after after.
func (s *Schedule) Next(after time.Time) time.Time {
	return s.sched.Next(after.In(s.loc))
}

// Run checks at every scheduled time until ctx is done.
func (s *Schedule) Run(ctx context.Context) error {
	log.Printf("probe: schedule started, tz=%s", s.loc)

	for {
		next := s.Next(s.clock())
		timer := time.NewTimer(next.Sub(s.clock()))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("probe: schedule stopped")
			return ctx.Err()
		case <-timer.C:
			s.checker.Check(ctx)
		}
	}
}
