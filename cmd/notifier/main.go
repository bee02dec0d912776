package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/api/handlers/notification"
	"github.com/aliskhannn/clinic-notifier/internal/api/router"
	"github.com/aliskhannn/clinic-notifier/internal/api/server"
	"github.com/aliskhannn/clinic-notifier/internal/backoff"
	"github.com/aliskhannn/clinic-notifier/internal/clock"
	"github.com/aliskhannn/clinic-notifier/internal/config"
	"github.com/aliskhannn/clinic-notifier/internal/dispatcher"
	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/publisher"
	notifsvc "github.com/aliskhannn/clinic-notifier/internal/service/notification"
	"github.com/aliskhannn/clinic-notifier/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()

	m := metrics.New(prometheus.DefaultRegisterer)
	clk := clock.Real{}

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	store, closeStore := newStore(cfg)
	closers = append(closers, closeStore)

	sink, closeSink := newSink(cfg)
	closers = append(closers, closeSink)

	pub := publisher.New(sink, cfg.Audit.BufferSize, cfg.Retry, cfg.Audit.DrainTimeout, m)
	registry := newRegistry(cfg)

	policy := backoff.FromStrategy(cfg.Delivery.Backoff, cfg.Delivery.MaxDelay)
	d := dispatcher.New(store, registry, pub, policy, clk, cfg.Sender.Timeout, m)

	scheduler := worker.NewScheduler(store, d, clk, m, worker.Config{
		Interval:      cfg.Scheduler.Interval,
		PurgeInterval: cfg.Scheduler.PurgeInterval,
		BatchSize:     cfg.Scheduler.BatchSize,
		Parallelism:   cfg.Scheduler.Parallelism,
		RunTimeout:    cfg.Scheduler.RunTimeout,
		Retention:     cfg.Scheduler.Retention,
	})

	// Terminal summaries are cached only when Redis is configured.
	var cache interface {
		SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
		GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
	}
	if cfg.Redis.Enabled {
		rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cache = rdb
	}

	service := notifsvc.NewService(store, cache, cfg.Delivery, clk, cfg.Retry, m)
	handler := notification.NewHandler(service, validator.New())

	api := server.New(cfg.Server.HTTPPort, router.New(handler))
	ops := server.New(cfg.Server.MetricsPort, metrics.Handler(prometheus.DefaultGatherer))

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		runWorkers(ctx, scheduler, pub)
	}()

	for _, s := range []*http.Server{api, ops} {
		s := s
		go func() {
			zlog.Logger.Info().Str("addr", s.Addr).Msg("listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Logger.Fatal().Err(err).Str("addr", s.Addr).Msg("failed to start server")
			}
		}()
	}

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down servers")
	for _, s := range []*http.Server{api, ops} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			zlog.Logger.Error().Err(err).Str("addr", s.Addr).Msg("failed to shutdown server")
		}
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// The scheduler finishes its current run and the publisher drains
	// before connections close.
	<-workersDone
	zlog.Logger.Info().Msg("notifier stopped")
}
