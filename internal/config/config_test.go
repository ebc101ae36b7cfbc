package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QUIZ_ENDPOINT_URL", "QUESTIONNAIRE_FILE", "FETCH_TIMEOUT", "XHR_TIMEOUT",
		"IFRAME_TIMEOUT", "JSONP_TIMEOUT", "RETRY_DELAY", "STRICT_FRAME_LOAD",
		"TIMESTAMP_TIMEZONE", "DEBUG", "HTTP_ADDR", "PORT", "HTTP_SHUTDOWN_TIMEOUT",
		"SUBMIT_RATE_LIMIT", "SUBMIT_RATE_BURST", "DATABASE_URL", "DB_OP_TIMEOUT",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
		"DB_CONN_MAX_IDLE_TIME", "REDIS_ADDR", "METRICS_ENABLED", "METRICS_PATH",
		"METRICS_PORT", "PROBE_ENABLED", "PROBE_SCHEDULE", "PROBE_TIMEZONE",
		"RETRY_ENABLED", "RETRY_INTERVAL", "RETRY_THRESHOLD", "RETRY_BATCH_SIZE",
		"RETRY_MAX_RUNS", "CIRCUIT_BREAKER_THRESHOLD", "CIRCUIT_BREAKER_COOLDOWN",
		"SUCCESS_DISMISS_DELAY", "RETRY_PROMPT_DELAY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	durations := map[string]struct {
		got, want time.Duration
	}{
		"FetchTimeout":           {cfg.FetchTimeout, 15 * time.Second},
		"XHRTimeout":             {cfg.XHRTimeout, 15 * time.Second},
		"IframeTimeout":          {cfg.IframeTimeout, 20 * time.Second},
		"JSONPTimeout":           {cfg.JSONPTimeout, 15 * time.Second},
		"RetryDelay":             {cfg.RetryDelay, time.Second},
		"HTTPShutdownTimeout":    {cfg.HTTPShutdownTimeout, 10 * time.Second},
		"DBOpTimeout":            {cfg.DBOpTimeout, 5 * time.Second},
		"DBConnMaxLifetime":      {cfg.DBConnMaxLifetime, 30 * time.Minute},
		"RetryInterval":          {cfg.RetryInterval, 5 * time.Minute},
		"RetryThreshold":         {cfg.RetryThreshold, 10 * time.Minute},
		"CircuitBreakerCooldown": {cfg.CircuitBreakerCooldown, 2 * time.Minute},
		"SuccessDismissDelay":    {cfg.SuccessDismissDelay, 5 * time.Second},
		"RetryPromptDelay":       {cfg.RetryPromptDelay, 3 * time.Second},
	}
	for name, d := range durations {
		if d.got != d.want {
			t.Errorf("%s: expected %v, got %v", name, d.want, d.got)
		}
	}

	if !cfg.StrictFrameLoad {
		t.Error("StrictFrameLoad should default to true")
	}
	if cfg.TimestampTimezone != "Asia/Bangkok" {
		t.Errorf("TimestampTimezone: expected Asia/Bangkok, got %q", cfg.TimestampTimezone)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: expected :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.CircuitBreakerThreshold != 0 {
		t.Errorf("CircuitBreakerThreshold: expected 0 (disabled), got %d", cfg.CircuitBreakerThreshold)
	}
	if cfg.SubmitRateLimit != 5 || cfg.SubmitRateBurst != 10 {
		t.Errorf("rate limit: expected 5/10, got %v/%d", cfg.SubmitRateLimit, cfg.SubmitRateBurst)
	}
	if cfg.RetryBatchSize != 50 || cfg.RetryMaxRuns != 3 {
		t.Errorf("retry: expected 50/3, got %d/%d", cfg.RetryBatchSize, cfg.RetryMaxRuns)
	}
	if cfg.ProbeSchedule != "*/5 * * * *" {
		t.Errorf("ProbeSchedule: expected */5 * * * *, got %q", cfg.ProbeSchedule)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUIZ_ENDPOINT_URL", "https://forms.example.com/exec")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("RETRY_DELAY", "0s")
	t.Setenv("STRICT_FRAME_LOAD", "false")
	t.Setenv("PORT", "3000")
	t.Setenv("CIRCUIT_BREAKER_THRESHOLD", "4")
	t.Setenv("SUBMIT_RATE_LIMIT", "0.5")
	t.Setenv("RETRY_MAX_RUNS", "7")

	cfg := Load()

	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout: expected 3s, got %v", cfg.FetchTimeout)
	}
	if cfg.RetryDelay != 0 {
		t.Errorf("RetryDelay: expected 0, got %v", cfg.RetryDelay)
	}
	if cfg.StrictFrameLoad {
		t.Error("StrictFrameLoad should be false")
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr: expected :3000 from PORT, got %q", cfg.HTTPAddr)
	}
	if cfg.CircuitBreakerThreshold != 4 {
		t.Errorf("CircuitBreakerThreshold: expected 4, got %d", cfg.CircuitBreakerThreshold)
	}
	if cfg.SubmitRateLimit != 0.5 {
		t.Errorf("SubmitRateLimit: expected 0.5, got %v", cfg.SubmitRateLimit)
	}
	if cfg.RetryMaxRuns != 7 {
		t.Errorf("RetryMaxRuns: expected 7, got %d", cfg.RetryMaxRuns)
	}
}

func TestLoad_InvalidIntegersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRY_BATCH_SIZE", "abc")
	t.Setenv("DB_MAX_OPEN_CONNS", "-3")
	t.Setenv("CIRCUIT_BREAKER_THRESHOLD", "many")

	cfg := Load()

	if cfg.RetryBatchSize != 50 {
		t.Errorf("RetryBatchSize: expected default 50, got %d", cfg.RetryBatchSize)
	}
	if cfg.DBMaxOpenConns != 25 {
		t.Errorf("DBMaxOpenConns: expected default 25, got %d", cfg.DBMaxOpenConns)
	}
	if cfg.CircuitBreakerThreshold != 0 {
		t.Errorf("CircuitBreakerThreshold: expected 0, got %d", cfg.CircuitBreakerThreshold)
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{TimestampTimezone: "Asia/Bangkok"}
	if got := cfg.Location().String(); got != "Asia/Bangkok" {
		t.Errorf("Location() = %q, want Asia/Bangkok", got)
	}

	cfg.TimestampTimezone = "Nowhere/Special"
	if cfg.Location() != time.UTC {
		t.Error("unknown zone should fall back to UTC")
	}
}

func TestMaskedJSON_MasksSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://user:hunter2@db:5432/quiz")
	t.Setenv("QUIZ_ENDPOINT_URL", "https://forms.example.com/exec?key=s3cret")

	data, err := Load().MaskedJSON()
	if err != nil {
		t.Fatalf("MaskedJSON failed: %v", err)
	}
	out := string(data)

	if strings.Contains(out, "hunter2") || strings.Contains(out, "s3cret") {
		t.Errorf("MaskedJSON leaked a secret:\n%s", out)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("MaskedJSON is not valid JSON: %v", err)
	}
	for _, key := range []string{"fetch_timeout", "iframe_timeout", "retry_delay", "strict_frame_load", "db_op_timeout"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("MaskedJSON missing %s field", key)
		}
	}
	if fields["database_url"] != "postgres://***" {
		t.Errorf("database_url = %v, want postgres://***", fields["database_url"])
	}
	if fields["endpoint_url"] != "https://forms.example.com/exec?***" {
		t.Errorf("endpoint_url = %v", fields["endpoint_url"])
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"postgres://u:p@h/db", "postgres://***"},
		{"postgresql://u:p@h/db", "postgresql://***"},
		{"redis-password", "***"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
