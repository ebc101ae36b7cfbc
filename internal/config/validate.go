package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// probeParser accepts the same expressions the probe scheduler does.
var probeParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// QUIZ_ENDPOINT_URL is required and must be absolute http(s)
	if cfg.EndpointURL == "" {
		errs = append(errs, ValidationError{Field: "QUIZ_ENDPOINT_URL", Message: "required"})
	} else if u, err := url.Parse(cfg.EndpointURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "QUIZ_ENDPOINT_URL", Message: "must be an absolute http or https URL"})
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"FETCH_TIMEOUT", cfg.FetchTimeoutStr},
		{"XHR_TIMEOUT", cfg.XHRTimeoutStr},
		{"IFRAME_TIMEOUT", cfg.IframeTimeoutStr},
		{"JSONP_TIMEOUT", cfg.JSONPTimeoutStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"RETRY_INTERVAL", cfg.RetryIntervalStr},
		{"RETRY_THRESHOLD", cfg.RetryThresholdStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
	} {
		errs = append(errs, checkDuration(d.field, d.value, false)...)
	}

	// Zero is allowed: it removes the pause between strategies.
	errs = append(errs, checkDuration("RETRY_DELAY", cfg.RetryDelayStr, true)...)
	errs = append(errs, checkDuration("SUCCESS_DISMISS_DELAY", cfg.SuccessDismissDelayStr, true)...)
	errs = append(errs, checkDuration("RETRY_PROMPT_DELAY", cfg.RetryPromptDelayStr, true)...)

	if _, err := time.LoadLocation(cfg.TimestampTimezone); err != nil {
		errs = append(errs, ValidationError{Field: "TIMESTAMP_TIMEZONE", Message: fmt.Sprintf("unknown zone: %v", err)})
	}

	if cfg.ProbeEnabled {
		if _, err := probeParser.Parse(cfg.ProbeSchedule); err != nil {
			errs = append(errs, ValidationError{Field: "PROBE_SCHEDULE", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
		if _, err := time.LoadLocation(cfg.ProbeTimezone); err != nil {
			errs = append(errs, ValidationError{Field: "PROBE_TIMEZONE", Message: fmt.Sprintf("unknown zone: %v", err)})
		}
	}

	// Redelivery reads archived submissions.
	if cfg.RetryEnabled && cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{Field: "RETRY_ENABLED", Message: "requires DATABASE_URL"})
	}

	if cfg.SubmitRateLimit < 0 {
		errs = append(errs, ValidationError{Field: "SUBMIT_RATE_LIMIT", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkDuration(field, value string, allowZero bool) []ValidationError {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		return []ValidationError{{Field: field, Message: fmt.Sprintf("invalid duration: %v", err)}}
	case d < 0 || (d == 0 && !allowZero):
		return []ValidationError{{Field: field, Message: "must be positive"}}
	}
	return nil
}
