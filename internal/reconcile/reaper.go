package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ReaperStore is the slice of the metadata store the reaper needs
type ReaperStore interface {
	ReapStuckJobs(ctx context.Context, cutoff time.Time, errorMsg string) (int, error)
	ReapStuckVideoJobs(ctx context.Context, cutoff time.Time, errorMsg string) (int, error)
}

// Reaper force-fails jobs stuck in PROCESSING longer than MaxAge. It is the
// bound on jobs the reconciler keeps skipping because the backend reports
// them neither queued nor done.
type Reaper struct {
	logger *slog.Logger
	store  ReaperStore
	maxAge time.Duration
}

// NewReaper creates a reaper
func NewReaper(logger *slog.Logger, store ReaperStore, maxAge time.Duration) *Reaper {
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}

	return &Reaper{
		logger: logger,
		store:  store,
		maxAge: maxAge,
	}
}

// ReapOnce fails every render and video job that started longer than MaxAge
// ago and is still PROCESSING. Returns the total number of jobs reaped.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.maxAge)
	msg := fmt.Sprintf("timed out after %s in processing", r.maxAge)

	reaped, err := r.store.ReapStuckJobs(ctx, cutoff, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to reap render jobs: %w", err)
	}

	videoReaped, err := r.store.ReapStuckVideoJobs(ctx, cutoff, msg)
	if err != nil {
		return reaped, fmt.Errorf("failed to reap video jobs: %w", err)
	}

	total := reaped + videoReaped
	if total > 0 {
		r.logger.Info("Reaped stuck jobs",
			slog.Int("render_jobs", reaped),
			slog.Int("video_jobs", videoReaped),
			slog.Duration("max_age", r.maxAge),
		)
	}

	return total, nil
}
