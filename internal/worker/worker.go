// Package worker runs the background side of the system: the periodic
// reconcile sweep, the stuck-job reaper, and eager per-job checks driven by
// job.submitted messages.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/domain"
	"github.com/atlasreach/mediaforge/internal/reconcile"
	"github.com/atlasreach/mediaforge/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Reconciler    *reconcile.Reconciler
	Reaper        *reconcile.Reaper
	Concurrency   int
	PrefetchCount int
	CheckTimeout  time.Duration
	SweepInterval time.Duration
	ReapInterval  time.Duration
}

// Worker drives reconciliation in the background
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	reconciler    *reconcile.Reconciler
	reaper        *reconcile.Reaper
	concurrency   int
	prefetchCount int
	checkTimeout  time.Duration
	sweepInterval time.Duration
	reapInterval  time.Duration

	workerID string
	jobsChan chan *domain.JobMessage
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	prefetchCount := cfg.PrefetchCount
	if prefetchCount <= 0 {
		prefetchCount = concurrency
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 8 * time.Second
	}

	reapInterval := cfg.ReapInterval
	if reapInterval <= 0 {
		reapInterval = time.Minute
	}

	checkTimeout := cfg.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = 30 * time.Second
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		reconciler:    cfg.Reconciler,
		reaper:        cfg.Reaper,
		concurrency:   concurrency,
		prefetchCount: prefetchCount,
		checkTimeout:  checkTimeout,
		sweepInterval: sweepInterval,
		reapInterval:  reapInterval,
		workerID:      "mediaforge-worker-" + uuid.New().String()[:8],
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins background processing and blocks until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("sweep_interval", w.sweepInterval),
		slog.Duration("reap_interval", w.reapInterval),
	)

	w.spawnWorkerPool(ctx)

	if w.rabbitClient != nil {
		deliveries, err := w.setupConsumer()
		if err != nil {
			// Eager checks are an optimization; the sweep still settles
			// every job without them
			w.logger.Warn("Consumer unavailable, relying on sweeps only",
				slog.String("error", err.Error()),
			)
		} else {
			go w.startMessageDispatcher(ctx, deliveries)
		}
	}

	// One eager sweep at startup picks up jobs left over from a previous run
	if err := w.reconciler.Sweep(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("Startup sweep failed", slog.String("error", err.Error()))
	}

	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	reapTicker := time.NewTicker(w.reapInterval)
	defer reapTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker context canceled, stopping...")
			return nil

		case <-sweepTicker.C:
			if err := w.reconciler.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("Sweep failed", slog.String("error", err.Error()))
			}

		case <-reapTicker.C:
			if _, err := w.reaper.ReapOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("Reap failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Stop gracefully stops the worker pool
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
