package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// spawnWorkerPool spawns N goroutines that run eager per-job checks
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the processing loop for one pool goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				return
			}

			err := w.checkJob(ctx, msg)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("job_id", msg.JobID),
				)
				continue
			}

			if err != nil {
				w.logger.Warn("Eager job check failed",
					slog.String("worker_name", workerName),
					slog.String("job_id", msg.JobID),
					slog.String("error", err.Error()),
				)

				requeue := w.shouldRequeue(err)
				if nackErr := channel.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("job_id", msg.JobID),
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("job_id", msg.JobID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}

// checkJob runs one bounded reconciliation step for a just-submitted job
func (w *Worker) checkJob(ctx context.Context, msg *domain.JobMessage) error {
	checkCtx, cancel := context.WithTimeout(ctx, w.checkTimeout)
	defer cancel()

	_, err := w.reconciler.CheckJob(checkCtx, msg.JobID)
	return err
}

// shouldRequeue decides whether a failed check is worth retrying via the
// broker. Transient backend errors are; everything else the periodic sweep
// will settle anyway.
func (w *Worker) shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrJobNotFound) {
		return false
	}

	var queryErr *domain.BackendQueryError
	if errors.As(err, &queryErr) {
		return true
	}

	return false
}
