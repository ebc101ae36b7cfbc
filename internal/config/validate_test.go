package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		EndpointURL:       "https://forms.example.com/exec",
		FetchTimeoutStr:   "15s",
		XHRTimeoutStr:     "15s",
		IframeTimeoutStr:  "20s",
		JSONPTimeoutStr:   "15s",
		RetryDelayStr:     "1s",
		TimestampTimezone: "Asia/Bangkok",
		ProbeSchedule:     "*/5 * * * *",
		ProbeTimezone:     "UTC",
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("valid config should not return error, got: %v", err)
	}
}

func TestValidate_EndpointURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"missing", "", "required"},
		{"relative", "/exec", "absolute http or https"},
		{"wrong scheme", "ftp://forms.example.com/exec", "absolute http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.EndpointURL = tt.url

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error for endpoint %q", tt.url)
			}
			if !strings.Contains(err.Error(), "QUIZ_ENDPOINT_URL") || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention QUIZ_ENDPOINT_URL and %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_InvalidTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"non-parseable", "soon", "invalid duration"},
		{"negative", "-1s", "must be positive"},
		{"zero", "0s", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.IframeTimeoutStr = tt.value

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error for iframe timeout %q", tt.value)
			}
			if !strings.Contains(err.Error(), "IFRAME_TIMEOUT") || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain IFRAME_TIMEOUT and %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ZeroRetryDelayAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.RetryDelayStr = "0s"
	if err := Validate(cfg); err != nil {
		t.Errorf("zero retry delay should be valid, got: %v", err)
	}
}

func TestValidate_ProbeSchedule(t *testing.T) {
	cfg := validConfig()
	cfg.ProbeEnabled = true
	cfg.ProbeSchedule = "every now and then"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "PROBE_SCHEDULE") {
		t.Fatalf("expected PROBE_SCHEDULE error, got %v", err)
	}

	cfg.ProbeSchedule = "@hourly"
	if err := Validate(cfg); err != nil {
		t.Errorf("descriptor schedule should be valid, got: %v", err)
	}
}

func TestValidate_RetryNeedsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.RetryEnabled = true

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL requirement, got %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.EndpointURL = ""
	cfg.TimestampTimezone = "Mars/Olympus"
	cfg.SubmitRateLimit = -1

	err := Validate(cfg)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.Contains(err.Error(), "3 validation errors") {
		t.Errorf("error message should count errors: %q", err.Error())
	}
}
