package api

import (
	"time"

	"github.com/djlord-it/quizrelay/internal/feedback"
	"github.com/djlord-it/quizrelay/internal/questionnaire"
)

type SubmitRequest struct {
	Answers map[string]string `json:"answers"`
}

type AttemptResponse struct {
	Strategy   string `json:"strategy"`
	Position   int    `json:"position"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
}

type SubmissionResponse struct {
	SubmissionID string            `json:"submission_id"`
	Status       string            `json:"status"`
	Method       string            `json:"method,omitempty"`
	Payload      string            `json:"payload,omitempty"`
	Error        string            `json:"error,omitempty"`
	Attempts     []AttemptResponse `json:"attempts"`
	Report       feedback.Report   `json:"report"`
}

type StatsResponse struct {
	Hour     string           `json:"hour"`
	Counters map[string]int64 `json:"counters"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse is returned with 422 when answers are incomplete.
type ValidationErrorResponse struct {
	Error  string                    `json:"error"`
	Fields questionnaire.FieldErrors `json:"fields"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
