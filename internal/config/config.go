package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	// Asia/Bangkok must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// Config holds all configuration for quizrelay.
// Values are loaded from environment variables; see `quizrelay config` for the effective set.
type Config struct {
	EndpointURL       string `json:"endpoint_url"`
	QuestionnaireFile string `json:"questionnaire_file,omitempty"`

	// Per-strategy timeouts, in waterfall order.
	FetchTimeout     time.Duration `json:"-"`
	FetchTimeoutStr  string        `json:"fetch_timeout"`
	XHRTimeout       time.Duration `json:"-"`
	XHRTimeoutStr    string        `json:"xhr_timeout"`
	IframeTimeout    time.Duration `json:"-"`
	IframeTimeoutStr string        `json:"iframe_timeout"`
	JSONPTimeout     time.Duration `json:"-"`
	JSONPTimeoutStr  string        `json:"jsonp_timeout"`

	RetryDelay    time.Duration `json:"-"`
	RetryDelayStr string        `json:"retry_delay"`

	// StrictFrameLoad: when false, any response loaded into the frame counts
	// as delivered, whatever its status.
	StrictFrameLoad bool `json:"strict_frame_load"`

	TimestampTimezone string `json:"timestamp_timezone"`
	Debug             bool   `json:"debug"`

	HTTPAddr               string        `json:"http_addr"`
	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	// SubmitRateLimit is submissions per second accepted by the API; 0 disables limiting.
	SubmitRateLimit float64 `json:"submit_rate_limit"`
	SubmitRateBurst int     `json:"submit_rate_burst"`

	DatabaseURL          string        `json:"database_url,omitempty"`
	DBOpTimeout          time.Duration `json:"-"`
	DBOpTimeoutStr       string        `json:"db_op_timeout"`
	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	RedisAddr string `json:"redis_addr,omitempty"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	ProbeEnabled  bool   `json:"probe_enabled"`
	ProbeSchedule string `json:"probe_schedule"`
	ProbeTimezone string `json:"probe_timezone"`

	RetryEnabled      bool          `json:"retry_enabled"`
	RetryInterval     time.Duration `json:"-"`
	RetryIntervalStr  string        `json:"retry_interval"`
	RetryThreshold    time.Duration `json:"-"`
	RetryThresholdStr string        `json:"retry_threshold"`
	RetryBatchSize    int           `json:"retry_batch_size"`
	RetryMaxRuns      int           `json:"retry_max_runs"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	SuccessDismissDelay    time.Duration `json:"-"`
	SuccessDismissDelayStr string        `json:"success_dismiss_delay"`
	RetryPromptDelay       time.Duration `json:"-"`
	RetryPromptDelayStr    string        `json:"retry_prompt_delay"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		EndpointURL:       os.Getenv("QUIZ_ENDPOINT_URL"),
		QuestionnaireFile: os.Getenv("QUESTIONNAIRE_FILE"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		Debug:             os.Getenv("DEBUG") == "true",
		MetricsEnabled:    os.Getenv("METRICS_ENABLED") == "true",
		ProbeEnabled:      os.Getenv("PROBE_ENABLED") == "true",
		RetryEnabled:      os.Getenv("RETRY_ENABLED") == "true",
		StrictFrameLoad:   os.Getenv("STRICT_FRAME_LOAD") != "false",

		FetchTimeoutStr:           envOr("FETCH_TIMEOUT", "15s"),
		XHRTimeoutStr:             envOr("XHR_TIMEOUT", "15s"),
		IframeTimeoutStr:          envOr("IFRAME_TIMEOUT", "20s"),
		JSONPTimeoutStr:           envOr("JSONP_TIMEOUT", "15s"),
		RetryDelayStr:             envOr("RETRY_DELAY", "1s"),
		TimestampTimezone:         envOr("TIMESTAMP_TIMEZONE", "Asia/Bangkok"),
		HTTPShutdownTimeoutStr:    envOr("HTTP_SHUTDOWN_TIMEOUT", "10s"),
		DBOpTimeoutStr:            envOr("DB_OP_TIMEOUT", "5s"),
		DBConnMaxLifetimeStr:      envOr("DB_CONN_MAX_LIFETIME", "30m"),
		DBConnMaxIdleTimeStr:      envOr("DB_CONN_MAX_IDLE_TIME", "5m"),
		MetricsPath:               envOr("METRICS_PATH", "/metrics"),
		MetricsPort:               envOr("METRICS_PORT", "9090"),
		ProbeSchedule:             envOr("PROBE_SCHEDULE", "*/5 * * * *"),
		ProbeTimezone:             envOr("PROBE_TIMEZONE", "UTC"),
		RetryIntervalStr:          envOr("RETRY_INTERVAL", "5m"),
		RetryThresholdStr:         envOr("RETRY_THRESHOLD", "10m"),
		CircuitBreakerCooldownStr: envOr("CIRCUIT_BREAKER_COOLDOWN", "2m"),
		SuccessDismissDelayStr:    envOr("SUCCESS_DISMISS_DELAY", "5s"),
		RetryPromptDelayStr:       envOr("RETRY_PROMPT_DELAY", "3s"),
	}

	cfg.DBMaxOpenConns = envPositiveInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envPositiveInt("DB_MAX_IDLE_CONNS", 5)
	cfg.RetryBatchSize = envPositiveInt("RETRY_BATCH_SIZE", 50)
	cfg.RetryMaxRuns = envPositiveInt("RETRY_MAX_RUNS", 3)
	cfg.SubmitRateBurst = envPositiveInt("SUBMIT_RATE_BURST", 10)

	cfg.SubmitRateLimit = 5
	if s := os.Getenv("SUBMIT_RATE_LIMIT"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			cfg.SubmitRateLimit = f
		} else {
			log.Printf("config: invalid SUBMIT_RATE_LIMIT %q (must be a non-negative number), using default 5", s)
		}
	}

	if s := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, circuit breaker disabled", s)
		}
	}

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}

	// Parse durations; validation is handled separately by Validate().
	for _, d := range []struct {
		dst *time.Duration
		src string
	}{
		{&cfg.FetchTimeout, cfg.FetchTimeoutStr},
		{&cfg.XHRTimeout, cfg.XHRTimeoutStr},
		{&cfg.IframeTimeout, cfg.IframeTimeoutStr},
		{&cfg.JSONPTimeout, cfg.JSONPTimeoutStr},
		{&cfg.RetryDelay, cfg.RetryDelayStr},
		{&cfg.HTTPShutdownTimeout, cfg.HTTPShutdownTimeoutStr},
		{&cfg.DBOpTimeout, cfg.DBOpTimeoutStr},
		{&cfg.DBConnMaxLifetime, cfg.DBConnMaxLifetimeStr},
		{&cfg.DBConnMaxIdleTime, cfg.DBConnMaxIdleTimeStr},
		{&cfg.RetryInterval, cfg.RetryIntervalStr},
		{&cfg.RetryThreshold, cfg.RetryThresholdStr},
		{&cfg.CircuitBreakerCooldown, cfg.CircuitBreakerCooldownStr},
		{&cfg.SuccessDismissDelay, cfg.SuccessDismissDelayStr},
		{&cfg.RetryPromptDelay, cfg.RetryPromptDelayStr},
	} {
		if v, err := time.ParseDuration(d.src); err == nil {
			*d.dst = v
		}
	}

	return cfg
}

// Location returns the zone the submission timestamp is rendered in,
// falling back to UTC when the name cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimestampTimezone)
	if err != nil {
		log.Printf("config: unknown TIMESTAMP_TIMEZONE %q, using UTC", c.TimestampTimezone)
		return time.UTC
	}
	return loc
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envPositiveInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		log.Printf("config: invalid %s %q (must be a positive integer), using default %d", key, s, def)
		return def
	}
	return n
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	masked.DatabaseURL = maskSecret(c.DatabaseURL)
	masked.EndpointURL = maskQuery(c.EndpointURL)
	return json.MarshalIndent(masked, "", "  ")
}

// MaskedEndpoint is the endpoint URL safe for logs.
func (c Config) MaskedEndpoint() string {
	return maskQuery(c.EndpointURL)
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}

// maskQuery hides the query string of an endpoint URL; form endpoints often
// carry a deployment key there.
func maskQuery(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i] + "?***"
	}
	return s
}
