package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/djlord-it/quizrelay/internal/domain"
	"github.com/djlord-it/quizrelay/internal/feedback"
	"github.com/djlord-it/quizrelay/internal/questionnaire"
)

// Submitter runs one delivery of a collected record.
type Submitter interface {
	Submit(ctx context.Context, rec domain.Record) domain.Outcome
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Limiter gates submissions. *rate.Limiter satisfies it.
type Limiter interface {
	Allow() bool
}

// Stats reads the hourly outcome counters served on /stats.
type Stats interface {
	Hour(ctx context.Context, t time.Time) (map[string]int64, error)
}

type MetricsSink interface {
	RequestServed(route string, statusCode int)
}

type Handler struct {
	questionnaire *questionnaire.Questionnaire
	submitter     Submitter
	loc           *time.Location
	delays        feedback.Delays
	now           func() time.Time

	db      HealthChecker // nil = no database component in /health
	limiter Limiter       // nil = unlimited
	stats   Stats         // nil = /stats disabled
	metrics MetricsSink   // nil = disabled
}

func NewHandler(q *questionnaire.Questionnaire, submitter Submitter, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		questionnaire: q,
		submitter:     submitter,
		loc:           loc,
		delays:        feedback.DefaultDelays(),
		now:           time.Now,
	}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

func (h *Handler) WithLimiter(l Limiter) *Handler {
	h.limiter = l
	return h
}

func (h *Handler) WithStats(s Stats) *Handler {
	h.stats = s
	return h
}

func (h *Handler) WithMetrics(m MetricsSink) *Handler {
	h.metrics = m
	return h
}

func (h *Handler) WithDelays(d feedback.Delays) *Handler {
	h.delays = d
	return h
}

// WithClock overrides the clock used for the record timestamp.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	path := r.URL.Path
	route := path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(rec, r)

	case path == "/questionnaire" && r.Method == http.MethodGet:
		writeJSON(rec, http.StatusOK, h.questionnaire)

	case path == "/submissions" && r.Method == http.MethodPost:
		h.submit(rec, r)

	case path == "/stats" && r.Method == http.MethodGet && h.stats != nil:
		h.hourStats(rec, r)

	default:
		route = "other"
		writeError(rec, http.StatusNotFound, "not found")
	}

	if h.metrics != nil {
		h.metrics.RequestServed(route, rec.status)
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "too many submissions")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateSubmitRequest(h.questionnaire, req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.questionnaire.Validate(req.Answers); err != nil {
		var fields questionnaire.FieldErrors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:  "incomplete answers",
				Fields: fields,
			})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	record := h.questionnaire.Collect(req.Answers, h.now(), h.loc)
	outcome := h.submitter.Submit(r.Context(), record)

	resp := NewSubmissionResponse(outcome, feedback.For(outcome, h.delays))
	statusCode := http.StatusOK
	if !outcome.Succeeded() {
		log.Printf("api: submission=%s failed err=%v", outcome.SubmissionID, outcome.Err)
		statusCode = http.StatusBadGateway
	}
	writeJSON(w, statusCode, resp)
}

func (h *Handler) hourStats(w http.ResponseWriter, r *http.Request) {
	t := h.now()
	if raw := r.URL.Query().Get("hour"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hour: expected RFC3339")
			return
		}
		t = parsed
	}

	counters, err := h.stats.Hour(r.Context(), t)
	if err != nil {
		log.Printf("api: stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Hour:     formatTime(t.Truncate(time.Hour)),
		Counters: counters,
	})
}

// NewSubmissionResponse is the wire form of an outcome and its report.
func NewSubmissionResponse(outcome domain.Outcome, report feedback.Report) SubmissionResponse {
	resp := SubmissionResponse{
		SubmissionID: outcome.SubmissionID.String(),
		Status:       string(outcome.Status()),
		Method:       outcome.Method,
		Payload:      outcome.Payload,
		Attempts:     make([]AttemptResponse, 0, len(outcome.Attempts)),
		Report:       report,
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	for _, a := range outcome.Attempts {
		resp.Attempts = append(resp.Attempts, AttemptResponse{
			Strategy:   a.Strategy,
			Position:   a.Position,
			Error:      a.Error,
			StartedAt:  formatTime(a.StartedAt),
			DurationMS: a.FinishedAt.Sub(a.StartedAt).Milliseconds(),
		})
	}
	return resp
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
