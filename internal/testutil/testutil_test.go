package testutil

import (
	"context"
	"testing"
	"time"
)

func TestFakeClock_Now(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewFakeClock(fixed)

	got := clock.Now()
	if !got.Equal(fixed) {
		t.Errorf("Now() = %v, want %v", got, fixed)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewFakeClock(fixed)

	clock.Advance(5 * time.Minute)

	want := fixed.Add(5 * time.Minute)
	got := clock.Now()
	if !got.Equal(want) {
		t.Errorf("after Advance(5m), Now() = %v, want %v", got, want)
	}
}

func TestTestContext_HasDeadline(t *testing.T) {
	ctx := TestContext(t)

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("TestContext should have a deadline")
	}

	remaining := time.Until(deadline)
	if remaining <= 0 || remaining > 6*time.Second {
		t.Errorf("deadline should be ~5s from now, got %v", remaining)
	}
}

func TestMustParseUUID_Valid(t *testing.T) {
	id := MustParseUUID("12345678-1234-1234-1234-123456789abc")
	if id.String() != "12345678-1234-1234-1234-123456789abc" {
		t.Errorf("unexpected UUID: %s", id)
	}
}

func TestMustParseUUID_Invalid(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseUUID should panic on invalid UUID")
		}
	}()
	MustParseUUID("not-a-uuid")
}

func TestSleeper_RecordsWaitsAndAdvancesClock(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewFakeClock(fixed)
	s := NewSleeper(clock)

	for i := 0; i < 3; i++ {
		if err := s.Wait(context.Background(), time.Second); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if got := len(s.Waits()); got != 3 {
		t.Errorf("recorded %d waits, want 3", got)
	}
	if got := clock.Now(); !got.Equal(fixed.Add(3 * time.Second)) {
		t.Errorf("clock = %v, want %v", got, fixed.Add(3*time.Second))
	}
}

func TestSleeper_CancelledContext(t *testing.T) {
	s := NewSleeper(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Wait(ctx, time.Second); err != context.Canceled {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
	if len(s.Waits()) != 0 {
		t.Error("cancelled wait should not be recorded")
	}
}

func TestAnswers_Complete(t *testing.T) {
	answers := Answers()
	if len(answers) != 23 {
		t.Fatalf("len = %d, want 23", len(answers))
	}
	if answers["q21"] != "A" || answers["q23"] == "" {
		t.Errorf("unexpected answers: %v", answers)
	}
}
