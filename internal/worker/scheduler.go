package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/clinic-notifier/internal/clock"
	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/model"
)

//go:generate mockgen -source=scheduler.go -destination=../mocks/worker/mock.go -package=mocks
type claimStore interface {
	ClaimBatch(ctx context.Context, limit int, now time.Time) ([]model.Notification, error)
	PurgeTerminalOlderThan(ctx context.Context, retention time.Duration, now time.Time) (int64, error)
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, n model.Notification) (model.Status, error)
}

// Config controls the cadence and size of scheduler runs.
type Config struct {
	Interval      time.Duration
	PurgeInterval time.Duration
	BatchSize     int
	Parallelism   int
	RunTimeout    time.Duration
	Retention     time.Duration
}

// Stats summarizes one run.
type Stats struct {
	Claimed int
	Sent    int
	Failed  int
	Dead    int
	Errors  int
}

// Scheduler claims eligible notifications and hands them to the dispatcher
// over a bounded pool of goroutines.
type Scheduler struct {
	store      claimStore
	dispatcher notificationDispatcher
	clock      clock.Clock
	metrics    *metrics.Metrics
	cfg        Config

	running atomic.Bool
}

// NewScheduler creates a Scheduler. A Parallelism below one runs dispatches
// one at a time.
func NewScheduler(store claimStore, d notificationDispatcher, clk clock.Clock, m *metrics.Metrics, cfg Config) *Scheduler {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	return &Scheduler{
		store:      store,
		dispatcher: d,
		clock:      clk,
		metrics:    m,
		cfg:        cfg,
	}
}

// RunOnce claims one batch and dispatches it. It never returns an error:
// failures are counted in Stats and recorded on the notifications. A call
// made while another run is in progress returns empty Stats.
func (s *Scheduler) RunOnce(ctx context.Context) Stats {
	if !s.running.CompareAndSwap(false, true) {
		zlog.Logger.Debug().Msg("scheduler run already in progress, skipping")
		return Stats{}
	}
	defer s.running.Store(false)

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	var stats Stats

	batch, err := s.store.ClaimBatch(ctx, s.cfg.BatchSize, s.clock.Now())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to claim notifications")
		s.metrics.StoreError("claim_batch")
		stats.Errors++
		return stats
	}

	stats.Claimed = len(batch)
	s.metrics.Claimed(len(batch))
	if len(batch) == 0 {
		return stats
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Parallelism)

	for _, n := range batch {
		n := n
		g.Go(func() error {
			status, err := s.dispatch(ctx, n)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				stats.Errors++
				return nil
			}

			switch status {
			case model.StatusSent:
				stats.Sent++
			case model.StatusFailed:
				stats.Failed++
			case model.StatusDead:
				stats.Dead++
			}
			return nil
		})
	}
	_ = g.Wait()

	zlog.Logger.Info().
		Int("claimed", stats.Claimed).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Int("dead", stats.Dead).
		Int("errors", stats.Errors).
		Msg("scheduler run finished")

	return stats
}

func (s *Scheduler) dispatch(ctx context.Context, n model.Notification) (model.Status, error) {
	// Past the run deadline the claim is left to go stale rather than
	// spending an attempt on a send that cannot finish.
	if err := ctx.Err(); err != nil {
		zlog.Logger.Warn().
			Err(err).
			Str("id", n.ID.String()).
			Msg("run deadline reached before dispatch")
		return model.StatusProcessing, err
	}

	return s.dispatcher.Dispatch(ctx, n)
}

// Purge removes terminal notifications older than the retention window.
func (s *Scheduler) Purge(ctx context.Context) (int64, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	purged, err := s.store.PurgeTerminalOlderThan(ctx, s.cfg.Retention, s.clock.Now())
	if err != nil {
		s.metrics.StoreError("purge")
		return 0, err
	}

	s.metrics.Purged(purged)
	if purged > 0 {
		zlog.Logger.Info().Int64("purged", purged).Msg("terminal notifications purged")
	}

	return purged, nil
}

// Run sweeps on every tick until ctx is cancelled. A run in flight when ctx
// is cancelled still completes within its own deadline.
func (s *Scheduler) Run(ctx context.Context) {
	zlog.Logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("batch_size", s.cfg.BatchSize).
		Int("parallelism", s.cfg.Parallelism).
		Msg("scheduler started")

	dispatchTicker := time.NewTicker(s.cfg.Interval)
	defer dispatchTicker.Stop()

	purgeInterval := s.cfg.PurgeInterval
	if purgeInterval <= 0 {
		purgeInterval = time.Hour
	}
	purgeTicker := time.NewTicker(purgeInterval)
	defer purgeTicker.Stop()

	s.RunOnce(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("scheduler stopped")
			return
		case <-dispatchTicker.C:
			s.RunOnce(context.WithoutCancel(ctx))
		case <-purgeTicker.C:
			if _, err := s.Purge(context.WithoutCancel(ctx)); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to purge terminal notifications")
			}
		}
	}
}
