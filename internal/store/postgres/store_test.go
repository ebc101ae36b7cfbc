package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/djlord-it/quizrelay/internal/domain"
)

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("duplicate key value"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKeyError(tt.err); got != tt.want {
				t.Errorf("isDuplicateKeyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// openTestStore connects to TEST_DATABASE_URL; tests using it are skipped
// when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := domain.NewRecord([]domain.Field{{Name: "q1", Value: "A"}, {Name: "q23", Value: "a@b.co"}}, time.Now(), time.UTC)
	if err := s.InsertSubmission(ctx, rec); err != nil {
		t.Fatalf("InsertSubmission: %v", err)
	}
	// Second insert of the same record is ignored.
	if err := s.InsertSubmission(ctx, rec); err != nil {
		t.Fatalf("InsertSubmission again: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	attempt := domain.Attempt{
		ID: uuid.New(), SubmissionID: rec.ID(), Strategy: "fetch", Position: 1,
		Error: "fetch: http error status: 500", StartedAt: now, FinishedAt: now.Add(time.Second),
	}
	if err := s.InsertAttempt(ctx, attempt); err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}

	failed := domain.Failure(rec.ID(), errors.New("jsonp: timeout after 15s"), nil)
	if err := s.UpdateSubmissionStatus(ctx, failed); err != nil {
		t.Fatalf("UpdateSubmissionStatus: %v", err)
	}

	sub, err := s.GetSubmission(ctx, rec.ID())
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub.Status != domain.SubmissionStatusFailed || sub.Runs != 1 {
		t.Errorf("status=%s runs=%d, want failed/1", sub.Status, sub.Runs)
	}
	if diff := cmp.Diff(rec.Fields(), sub.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	pending, err := s.GetFailedSubmissions(ctx, time.Now().Add(time.Minute), 3, 100)
	if err != nil {
		t.Fatalf("GetFailedSubmissions: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == rec.ID() {
			found = true
		}
	}
	if !found {
		t.Error("failed submission not returned for redelivery")
	}

	delivered := domain.Success(rec.ID(), "xhr", "ok", nil)
	if err := s.UpdateSubmissionStatus(ctx, delivered); err != nil {
		t.Fatalf("UpdateSubmissionStatus delivered: %v", err)
	}
	if err := s.UpdateSubmissionStatus(ctx, failed); !errors.Is(err, ErrStatusTransitionDenied) {
		t.Errorf("expected ErrStatusTransitionDenied, got %v", err)
	}

	attempts, err := s.ListAttempts(ctx, rec.ID())
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Strategy != "fetch" {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestStore_UpdateUnknownSubmission(t *testing.T) {
	s := openTestStore(t)

	err := s.UpdateSubmissionStatus(context.Background(), domain.Failure(uuid.New(), errors.New("x"), nil))
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}
