package domain

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusDelivered SubmissionStatus = "delivered"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)

// Attempt records one strategy invocation inside a waterfall run.
type Attempt struct {
	ID           uuid.UUID
	SubmissionID uuid.UUID
	Strategy     string
	Position     int // 1-based position in the priority list

	Error string

	StartedAt  time.Time
	FinishedAt time.Time
}

func (a Attempt) Succeeded() bool { return a.Error == "" }

// Outcome is the terminal value of one waterfall run: either a success
// carrying the delivering method and its payload, or a failure carrying the
// error of the last attempted strategy.
type Outcome struct {
	SubmissionID uuid.UUID
	Method       string
	Payload      string
	Err          error
	Attempts     []Attempt
}

func Success(submissionID uuid.UUID, method, payload string, attempts []Attempt) Outcome {
	return Outcome{SubmissionID: submissionID, Method: method, Payload: payload, Attempts: attempts}
}

func Failure(submissionID uuid.UUID, lastErr error, attempts []Attempt) Outcome {
	return Outcome{SubmissionID: submissionID, Err: lastErr, Attempts: attempts}
}

func (o Outcome) Succeeded() bool { return o.Err == nil }

func (o Outcome) Status() SubmissionStatus {
	if o.Succeeded() {
		return SubmissionStatusDelivered
	}
	return SubmissionStatusFailed
}

// Failures counts the attempts that failed before the outcome settled.
func (o Outcome) Failures() int {
	n := 0
	for _, a := range o.Attempts {
		if !a.Succeeded() {
			n++
		}
	}
	return n
}

// Submission is the archived form of a record and its delivery state.
type Submission struct {
	ID     uuid.UUID
	Fields []Field
	Status SubmissionStatus
	Method string
	Error  string
	Runs   int // completed waterfall runs

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Submission) Record() Record {
	return RestoreRecord(s.ID, s.Fields)
}
