package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// ErrStatusTransitionDenied is returned when an outcome is recorded for a
// submission that was already delivered.
var ErrStatusTransitionDenied = errors.New("submission already delivered")

//go:embed schema.sql
var schema string

// Store archives submissions and their attempts in PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// EnsureSchema creates the archive tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertSubmission archives rec as pending. Archiving the same record twice
// is a no-op, so a redelivery can reuse its id.
func (s *Store) InsertSubmission(ctx context.Context, rec domain.Record) error {
	fields, err := json.Marshal(rec.Fields())
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryInsertSubmission, rec.ID(), fields, s.now().UTC())
	return err
}

func (s *Store) InsertAttempt(ctx context.Context, attempt domain.Attempt) error {
	_, err := s.db.ExecContext(ctx, queryInsertAttempt,
		attempt.ID,
		attempt.SubmissionID,
		attempt.Strategy,
		attempt.Position,
		attempt.Error,
		attempt.StartedAt,
		attempt.FinishedAt,
	)
	if isDuplicateKeyError(err) {
		return nil
	}
	return err
}

// UpdateSubmissionStatus records the outcome of one waterfall run and bumps
// the run counter. Returns ErrStatusTransitionDenied if the submission was
// already delivered, sql.ErrNoRows if it does not exist.
func (s *Store) UpdateSubmissionStatus(ctx context.Context, outcome domain.Outcome) error {
	var errText string
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}

	// Single atomic update with the guard in the WHERE clause.
	result, err := s.db.ExecContext(ctx, queryUpdateSubmissionStatus,
		string(outcome.Status()),
		outcome.Method,
		errText,
		s.now().UTC(),
		outcome.SubmissionID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	// Either not found or already delivered.
	var current string
	err = s.db.QueryRowContext(ctx, queryGetSubmissionStatus, outcome.SubmissionID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return err
	}
	return ErrStatusTransitionDenied
}

// GetSubmission returns one archived submission.
func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (domain.Submission, error) {
	row := s.db.QueryRowContext(ctx, queryGetSubmission, id)
	return scanSubmission(row)
}

// GetFailedSubmissions returns undelivered submissions last touched before
// olderThan that have run fewer than maxRuns times, oldest first.
func (s *Store) GetFailedSubmissions(ctx context.Context, olderThan time.Time, maxRuns, limit int) ([]domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, queryGetFailedSubmissions, olderThan, maxRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAttempts returns the attempts of a submission across all its runs.
func (s *Store) ListAttempts(ctx context.Context, submissionID uuid.UUID) ([]domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, queryListAttempts, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.Strategy, &a.Position, &a.Error, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (domain.Submission, error) {
	var (
		sub    domain.Submission
		fields []byte
		status string
	)
	err := row.Scan(&sub.ID, &fields, &status, &sub.Method, &sub.Error, &sub.Runs, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := json.Unmarshal(fields, &sub.Fields); err != nil {
		return domain.Submission{}, fmt.Errorf("decode fields of %s: %w", sub.ID, err)
	}
	sub.Status = domain.SubmissionStatus(status)
	return sub, nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
