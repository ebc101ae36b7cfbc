// Package testutil provides shared test helpers for quizrelay.
package testutil

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Sleeper records requested waits and returns at once, unless the context
// is already done.
type Sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
	clock *FakeClock
}

// NewSleeper creates a Sleeper. If clock is non-nil every wait advances it.
func NewSleeper(clock *FakeClock) *Sleeper {
	return &Sleeper{clock: clock}
}

func (s *Sleeper) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	return nil
}

// Waits returns a copy of every recorded wait in call order.
func (s *Sleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// MustParseUUID parses a UUID string and panics on error.
// Only for use in tests.
func MustParseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic("testutil.MustParseUUID: " + err.Error())
	}
	return id
}

// Answers returns a complete answer set for the default questionnaire.
func Answers() map[string]string {
	answers := make(map[string]string, 23)
	for i := 1; i <= 21; i++ {
		answers[questionName(i)] = "A"
	}
	answers["q22"] = "Somchai"
	answers["q23"] = "somchai@example.com"
	return answers
}

// Record returns a small ready-to-send record with a fixed id.
func Record() domain.Record {
	return domain.RestoreRecord(MustParseUUID("6c1f1f0e-3a43-4d7b-9a3c-1b8c6e0c2f11"), []domain.Field{
		{Name: "q1", Value: "A"},
		{Name: "q23", Value: "a@b.co"},
		{Name: domain.TimestampField, Value: "15/01/2567 17:00:00"},
	})
}

func questionName(i int) string {
	return "q" + strconv.Itoa(i)
}
