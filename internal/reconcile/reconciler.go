// Package reconcile drives PROCESSING render jobs to a terminal status by
// polling the backend's queue and history.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/comfy"
	"github.com/atlasreach/mediaforge/internal/domain"
)

// Store is the slice of the metadata store reconciliation needs
type Store interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListProcessingJobs(ctx context.Context, limit int) ([]domain.Job, error)
	MarkJobCompleted(ctx context.Context, jobID, resultURL string) error
	MarkJobFailed(ctx context.Context, jobID, expectedStatus, errorMsg string) error
	CreateArtifact(ctx context.Context, a *domain.Artifact) error
}

// Backend is the render backend surface the reconciler polls
type Backend interface {
	Queue(ctx context.Context) (*comfy.QueueState, error)
	History(ctx context.Context, correlationID string) (*comfy.HistoryEntry, bool, error)
	View(ctx context.Context, ref comfy.OutputRef) ([]byte, error)
	ViewURL(ref comfy.OutputRef) string
}

// ObjectStore persists output bytes durably
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Config holds reconciler dependencies and tuning
type Config struct {
	Logger        *slog.Logger
	Store         Store
	Backend       Backend
	ObjectStore   ObjectStore
	OutputNodeID  string
	BatchSize     int
	InterJobDelay time.Duration
}

// Reconciler settles in-flight render jobs
type Reconciler struct {
	logger        *slog.Logger
	store         Store
	backend       Backend
	objectStore   ObjectStore
	outputNodeID  string
	batchSize     int
	interJobDelay time.Duration
}

// NewReconciler creates a reconciler
func NewReconciler(cfg *Config) *Reconciler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	return &Reconciler{
		logger:        cfg.Logger,
		store:         cfg.Store,
		backend:       cfg.Backend,
		objectStore:   cfg.ObjectStore,
		outputNodeID:  cfg.OutputNodeID,
		batchSize:     batchSize,
		interJobDelay: cfg.InterJobDelay,
	}
}

// Sweep reconciles one batch of PROCESSING jobs, oldest first. Jobs are
// handled sequentially with a pause between them so the backend is never
// hammered. A queue snapshot failure aborts the whole sweep; per-job
// failures are logged and never stop the batch.
func (r *Reconciler) Sweep(ctx context.Context) error {
	jobs, err := r.store.ListProcessingJobs(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load processing jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	queue, err := r.backend.Queue(ctx)
	if err != nil {
		r.logger.Warn("Skipping sweep, queue snapshot unavailable",
			slog.String("error", err.Error()),
		)
		return err
	}

	r.logger.Debug("Sweeping processing jobs", slog.Int("count", len(jobs)))

	for i := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if i > 0 && r.interJobDelay > 0 {
			select {
			case <-time.After(r.interJobDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := r.reconcileJob(ctx, &jobs[i], queue); err != nil {
			var queryErr *domain.BackendQueryError
			if errors.As(err, &queryErr) {
				r.logger.Warn("Transient backend error, job left for next sweep",
					slog.String("job_id", jobs[i].ID),
					slog.String("error", err.Error()),
				)
				continue
			}

			r.logger.Error("Failed to reconcile job",
				slog.String("job_id", jobs[i].ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// CheckJob reconciles a single job on demand and returns its refreshed
// record. Jobs no longer PROCESSING are returned as they are.
func (r *Reconciler) CheckJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusProcessing {
		return job, nil
	}

	queue, err := r.backend.Queue(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.reconcileJob(ctx, job, queue); err != nil {
		return nil, err
	}

	return r.store.GetJob(ctx, jobID)
}

// reconcileJob settles one PROCESSING job against a queue snapshot.
//
// Still queued or running: nothing to do. Absent from the queue, the
// history record decides: completed histories produce an artifact, error
// histories fail the job, and a missing history is ambiguous, so the job
// stays PROCESSING until a later sweep or the reaper decides.
func (r *Reconciler) reconcileJob(ctx context.Context, job *domain.Job, queue *comfy.QueueState) error {
	if job.ExternalID == nil || *job.ExternalID == "" {
		// A PROCESSING job without a correlation id cannot be polled
		return r.markFailed(ctx, job.ID, "job has no backend correlation id")
	}
	correlationID := *job.ExternalID

	if queue.Contains(correlationID, job.ID) {
		return nil
	}

	entry, found, err := r.backend.History(ctx, correlationID)
	if err != nil {
		return err
	}

	if !found {
		r.logger.Debug("Job absent from queue and history, leaving in processing",
			slog.String("job_id", job.ID),
			slog.String("correlation_id", correlationID),
		)
		return nil
	}

	if entry.Failed() {
		msg := "render backend reported an error"
		if entry.Status.StatusStr != "" {
			msg = "render backend reported: " + entry.Status.StatusStr
		}
		return r.markFailed(ctx, job.ID, msg)
	}

	if !entry.Status.Completed {
		// Present in history but not settled either way
		return nil
	}

	return r.completeJob(ctx, job, entry)
}

// completeJob materializes the first output of a completed history entry
// and transitions the job to COMPLETED with a gallery artifact.
func (r *Reconciler) completeJob(ctx context.Context, job *domain.Job, entry *comfy.HistoryEntry) error {
	ref, ok := r.pickOutput(entry)
	if !ok {
		return r.markFailed(ctx, job.ID, "render completed without outputs")
	}

	resultURL, persistErr := r.persistOutput(ctx, job.ID, ref)
	if persistErr != nil {
		// Degraded completion: the backend's ephemeral URL stands in for
		// the durable copy
		resultURL = r.backend.ViewURL(ref)
		r.logger.Warn("Durable persistence failed, recording ephemeral result URL",
			slog.String("job_id", job.ID),
			slog.String("error", persistErr.Error()),
		)
	}

	if err := r.store.MarkJobCompleted(ctx, job.ID, resultURL); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			// Another writer already settled the job
			r.logger.Debug("Job already settled by another writer",
				slog.String("job_id", job.ID),
			)
			return nil
		}
		return err
	}

	artifact := &domain.Artifact{
		ID:                uuid.New().String(),
		SourceJobID:       &job.ID,
		BatchID:           job.BatchID,
		EditKind:          domain.EditKindNone,
		StorageURL:        resultURL,
		ReferenceFilename: job.ReferenceFilename,
		Prompt:            job.Prompt,
		NegativePrompt:    job.NegativePrompt,
		ModelName:         job.ModelName,
		Params:            job.Params,
		CreatedAt:         time.Now().UTC(),
	}

	if err := r.store.CreateArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("failed to record artifact for job %s: %w", job.ID, err)
	}

	r.logger.Info("Job completed",
		slog.String("job_id", job.ID),
		slog.String("result_url", resultURL),
	)

	return nil
}

// pickOutput selects the output to materialize: the configured output
// node's first file, or the first file of any node when the configured one
// produced nothing.
func (r *Reconciler) pickOutput(entry *comfy.HistoryEntry) (comfy.OutputRef, bool) {
	if refs, ok := entry.Outputs[r.outputNodeID]; ok && len(refs) > 0 {
		return refs[0], true
	}

	for _, refs := range entry.Outputs {
		if len(refs) > 0 {
			return refs[0], true
		}
	}

	return comfy.OutputRef{}, false
}

// persistOutput downloads the output bytes and uploads them durably,
// returning the stable public URL
func (r *Reconciler) persistOutput(ctx context.Context, jobID string, ref comfy.OutputRef) (string, error) {
	data, err := r.backend.View(ctx, ref)
	if err != nil {
		return "", &domain.PersistError{Err: err}
	}

	key := "jobs/" + jobID + "/" + ref.Filename
	contentType := mime.TypeByExtension(filepath.Ext(ref.Filename))

	if err := r.objectStore.Upload(ctx, key, data, contentType); err != nil {
		return "", &domain.PersistError{Err: err}
	}

	return r.objectStore.PublicURL(key), nil
}

// markFailed fails a PROCESSING job, treating a lost race as settled
func (r *Reconciler) markFailed(ctx context.Context, jobID, msg string) error {
	err := r.store.MarkJobFailed(ctx, jobID, domain.JobStatusProcessing, msg)
	if errors.Is(err, domain.ErrStateConflict) {
		return nil
	}
	return err
}
