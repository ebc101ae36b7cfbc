package probe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule_Invalid(t *testing.T) {
	_, err := NewSchedule(nil, "not cron", "UTC")
	assert.Error(t, err)

	_, err = NewSchedule(nil, "*/5 * * * *", "Nowhere/Zone")
	assert.Error(t, err)
}

func TestSchedule_Next(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		tz    string
		after time.Time
		want  time.Time
	}{
		{
			name:  "every five minutes",
			expr:  "*/5 * * * *",
			tz:    "UTC",
			after: time.Date(2024, 1, 15, 10, 2, 0, 0, time.UTC),
			want:  time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC),
		},
		{
			name:  "zone applies",
			expr:  "0 9 * * *",
			tz:    "Asia/Bangkok",
			after: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC),
		},
		{
			name:  "descriptor",
			expr:  "@hourly",
			tz:    "UTC",
			after: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			want:  time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSchedule(nil, tt.expr, tt.tz)
			require.NoError(t, err)
			got := s.Next(tt.after)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.after, got.UTC(), tt.want)
			}
		})
	}
}

type countingChecker struct {
	n atomic.Int32
}

func (c *countingChecker) Check(context.Context) Result {
	c.n.Add(1)
	return Result{Reachable: true}
}

func TestSchedule_RunChecksUntilCancelled(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a real schedule tick")
	}
	checker := &countingChecker{}
	s, err := NewSchedule(checker, "@every 1s", "UTC")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.GreaterOrEqual(t, checker.n.Load(), int32(1))
}
