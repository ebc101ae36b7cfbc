package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/djlord-it/quizrelay/internal/api"
	"github.com/djlord-it/quizrelay/internal/config"
	"github.com/djlord-it/quizrelay/internal/leaderelection"
	"github.com/djlord-it/quizrelay/internal/metrics"
	"github.com/djlord-it/quizrelay/internal/probe"
	"github.com/djlord-it/quizrelay/internal/retrier"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the submission API with its background components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// serve runs until ctx is cancelled, then stops every component.
func serve(ctx context.Context, cfg config.Config) error {
	logConfigWarnings(&cfg)

	var sink *metrics.PrometheusSink
	var servers []*http.Server

	if cfg.MetricsEnabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		})
		log.Printf("quizrelay: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)
	}

	r, err := openRelay(ctx, cfg, sink)
	if err != nil {
		return err
	}
	defer r.Close()

	handler := newAPIHandler(r)
	servers = append(servers, &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})

	var sched *probe.Schedule
	if cfg.ProbeEnabled {
		prober := probe.New(nil, cfg.EndpointURL)
		if sink != nil {
			prober = prober.WithMetrics(sink)
		}
		prober.Diagnose(ctx)

		sched, err = probe.NewSchedule(prober, cfg.ProbeSchedule, cfg.ProbeTimezone)
		if err != nil {
			return withCode(exitInvalidConfig, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			log.Printf("quizrelay: http server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	if sched != nil {
		g.Go(func() error {
			if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Printf("quizrelay: probe enabled (schedule=%q, tz=%s)", cfg.ProbeSchedule, cfg.ProbeTimezone)
	}

	if cfg.RetryEnabled && r.store != nil {
		ret := retrier.New(retrier.Config{
			Interval:  cfg.RetryInterval,
			Threshold: cfg.RetryThreshold,
			BatchSize: cfg.RetryBatchSize,
			MaxRuns:   cfg.RetryMaxRuns,
		}, r.store, r.waterfall)
		// Replicas share the archive; only the lock holder redelivers.
		elector := leaderelection.New(r.db, leaderelection.RedeliveryLockKey)
		if sink != nil {
			ret = ret.WithMetrics(sink)
			elector = elector.WithMetrics(sink)
		}
		g.Go(func() error {
			elector.Run(gctx, ret.Run)
			return nil
		})
		log.Printf("quizrelay: retrier enabled (interval=%s, threshold=%s, batch=%d, max_runs=%d)",
			cfg.RetryInterval, cfg.RetryThreshold, cfg.RetryBatchSize, cfg.RetryMaxRuns)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("quizrelay: shutting down")
		for _, srv := range servers {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("quizrelay: http server %s shutdown error: %v", srv.Addr, err)
			}
			cancel()
		}
		return nil
	})

	log.Printf("quizrelay: started (endpoint=%s, strategies=%v, http=%s)",
		cfg.MaskedEndpoint(), r.waterfall.Names(), cfg.HTTPAddr)

	err = g.Wait()
	log.Println("quizrelay: stopped")
	return err
}

func newAPIHandler(r *relay) *api.Handler {
	h := api.NewHandler(r.questionnaire, r.waterfall, r.cfg.Location()).WithDelays(r.delays())
	if r.db != nil {
		h = h.WithHealthChecker(r.db)
	}
	if r.cfg.SubmitRateLimit > 0 {
		h = h.WithLimiter(rate.NewLimiter(rate.Limit(r.cfg.SubmitRateLimit), r.cfg.SubmitRateBurst))
	}
	if r.analytics != nil {
		h = h.WithStats(r.analytics)
	}
	if r.metrics != nil {
		h = h.WithMetrics(r.metrics)
	}
	return h
}
