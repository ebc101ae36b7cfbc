package main

import (
	"log"

	"github.com/djlord-it/quizrelay/internal/config"
)

// logConfigWarnings flags configurations that run but lose submissions or
// visibility. P0 can lose answers; P1 loses observability or protection.
func logConfigWarnings(cfg *config.Config) {
	if cfg.DatabaseURL == "" {
		log.Println("quizrelay: WARNING [P0]: DATABASE_URL not set; submissions are not archived and a failed delivery is lost once reported")
	} else if !cfg.RetryEnabled {
		log.Println("quizrelay: WARNING [P0]: RETRY_ENABLED=false; archived failures are never redelivered")
	}

	if !cfg.MetricsEnabled {
		log.Println("quizrelay: WARNING [P1]: METRICS_ENABLED=false; transport failures are only visible in logs")
	}

	if cfg.SubmitRateLimit == 0 {
		log.Println("quizrelay: WARNING [P1]: SUBMIT_RATE_LIMIT=0; the submission API is not rate limited")
	}

	if !cfg.StrictFrameLoad {
		log.Println("quizrelay: INFO: STRICT_FRAME_LOAD=false; any response loaded into the frame counts as delivered")
	}

	if cfg.CircuitBreakerThreshold > 0 {
		log.Printf("quizrelay: INFO: CIRCUIT_BREAKER_THRESHOLD=%d; a failing transport is skipped for %s",
			cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldownStr)
	}
}
