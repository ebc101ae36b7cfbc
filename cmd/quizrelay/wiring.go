package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/djlord-it/quizrelay/internal/analytics"
	"github.com/djlord-it/quizrelay/internal/circuitbreaker"
	"github.com/djlord-it/quizrelay/internal/config"
	"github.com/djlord-it/quizrelay/internal/feedback"
	"github.com/djlord-it/quizrelay/internal/metrics"
	"github.com/djlord-it/quizrelay/internal/questionnaire"
	"github.com/djlord-it/quizrelay/internal/store/postgres"
	"github.com/djlord-it/quizrelay/internal/transport"
	"github.com/djlord-it/quizrelay/internal/waterfall"
)

// relay is everything a command needs to collect and deliver answers.
// Optional components stay nil when their configuration is absent.
type relay struct {
	cfg           config.Config
	questionnaire *questionnaire.Questionnaire
	waterfall     *waterfall.Waterfall
	document      *transport.Document
	callbacks     *transport.Callbacks

	db        *sql.DB
	store     *postgres.Store
	redis     *redis.Client
	analytics *analytics.RedisSink
	metrics   *metrics.PrometheusSink
}

// loadConfig loads and validates the environment.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		return cfg, withCode(exitInvalidConfig, fmt.Errorf("configuration error: %w", err))
	}
	return cfg, nil
}

// openRelay wires the waterfall with whatever side components cfg enables.
// sink may be nil.
func openRelay(ctx context.Context, cfg config.Config, sink *metrics.PrometheusSink) (*relay, error) {
	q, err := questionnaire.Load(cfg.QuestionnaireFile)
	if err != nil {
		return nil, withCode(exitInvalidConfig, fmt.Errorf("questionnaire: %w", err))
	}

	r := &relay{
		cfg:           cfg,
		questionnaire: q,
		document:      transport.NewDocument(),
		callbacks:     transport.NewCallbacks(),
		metrics:       sink,
	}

	steps := waterfall.StandardSteps(nil, r.document, r.callbacks, waterfall.Timeouts{
		Fetch:  cfg.FetchTimeout,
		XHR:    cfg.XHRTimeout,
		Iframe: cfg.IframeTimeout,
		JSONP:  cfg.JSONPTimeout,
	}, cfg.StrictFrameLoad)
	r.waterfall = waterfall.New(cfg.EndpointURL, steps, cfg.RetryDelay).WithDebug(cfg.Debug)

	if sink != nil {
		r.waterfall = r.waterfall.WithMetrics(sink)
	}

	if breaker := circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown); breaker.Enabled() {
		r.waterfall = r.waterfall.WithBreaker(breaker)
		log.Printf("quizrelay: circuit breaker enabled (threshold=%d, cooldown=%s)",
			cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
	}

	if cfg.DatabaseURL != "" {
		if err := r.openStore(ctx); err != nil {
			r.Close()
			return nil, err
		}
		r.waterfall = r.waterfall.WithStore(r.store)
	}

	if cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		r.analytics = analytics.NewRedisSink(r.redis)
		r.waterfall = r.waterfall.WithAnalytics(r.analytics)
		log.Printf("quizrelay: analytics enabled (redis=%s)", cfg.RedisAddr)
	}

	return r, nil
}

func (r *relay) openStore(ctx context.Context) error {
	db, err := sql.Open("postgres", r.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db

	db.SetMaxOpenConns(r.cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(r.cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(r.cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(r.cfg.DBConnMaxIdleTime)

	log.Printf("quizrelay: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		r.cfg.DBMaxOpenConns, r.cfg.DBMaxIdleConns, r.cfg.DBConnMaxLifetime, r.cfg.DBConnMaxIdleTime)

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.DBOpTimeout)
	defer cancel()

	if err := db.PingContext(opCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	r.store = postgres.New(db)
	if err := r.store.EnsureSchema(opCtx); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	return nil
}

func (r *relay) delays() feedback.Delays {
	return feedback.Delays{
		SuccessDismiss: r.cfg.SuccessDismissDelay,
		RetryPrompt:    r.cfg.RetryPromptDelay,
	}
}

// Close releases the database and Redis connections.
func (r *relay) Close() {
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			log.Printf("quizrelay: redis close error: %v", err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			log.Printf("quizrelay: db close error: %v", err)
		}
	}
}
