package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atlasreach/mediaforge/internal/domain"
)

const videoJobColumns = `
	job_id, provider, prompt, negative_prompt, start_image_url, end_image_url,
	duration_seconds, mode, provider_job_id, video_url, status, error_message,
	created_at, started_at, completed_at
`

// CreateVideoJob inserts a new video job record
func (s *Store) CreateVideoJob(ctx context.Context, job *domain.VideoJob) error {
	query := `
		INSERT INTO video_jobs (
			job_id, provider, prompt, negative_prompt, start_image_url,
			end_image_url, duration_seconds, mode, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Provider,
		job.Prompt,
		job.NegativePrompt,
		job.StartImageURL,
		job.EndImageURL,
		job.DurationSeconds,
		job.Mode,
		job.Status,
		job.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create video job: %w", err)
	}

	return nil
}

// GetVideoJob retrieves a video job by id
func (s *Store) GetVideoJob(ctx context.Context, jobID string) (*domain.VideoJob, error) {
	var job domain.VideoJob
	query := `SELECT ` + videoJobColumns + ` FROM video_jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVideoJobNotFound
		}
		return nil, fmt.Errorf("failed to get video job: %w", err)
	}

	return &job, nil
}

// MarkVideoJobProcessing transitions QUEUED -> PROCESSING with the
// provider's correlation id
func (s *Store) MarkVideoJobProcessing(ctx context.Context, jobID, providerJobID string) error {
	query := `
		UPDATE video_jobs
		SET status = $1,
		    provider_job_id = $2,
		    started_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusProcessing, providerJobID, jobID, domain.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark video job processing: %w", err)
	}

	return s.requireRow(result, jobID, domain.JobStatusProcessing)
}

// MarkVideoJobCompleted transitions PROCESSING -> COMPLETED with the
// provider's video URL. Repeat checks after completion lose the conditional
// update and surface ErrStateConflict, which callers treat as already-done.
func (s *Store) MarkVideoJobCompleted(ctx context.Context, jobID, videoURL string) error {
	query := `
		UPDATE video_jobs
		SET status = $1,
		    video_url = $2,
		    completed_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, videoURL, jobID, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark video job completed: %w", err)
	}

	return s.requireRow(result, jobID, domain.JobStatusCompleted)
}

// MarkVideoJobFailed transitions expectedStatus -> FAILED with the
// provider's error text
func (s *Store) MarkVideoJobFailed(ctx context.Context, jobID, expectedStatus, errorMsg string) error {
	query := `
		UPDATE video_jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID, expectedStatus)
	if err != nil {
		return fmt.Errorf("failed to mark video job failed: %w", err)
	}

	return s.requireRow(result, jobID, domain.JobStatusFailed)
}

// ReapStuckVideoJobs force-fails PROCESSING video jobs older than cutoff
func (s *Store) ReapStuckVideoJobs(ctx context.Context, cutoff time.Time, errorMsg string) (int, error) {
	query := `
		UPDATE video_jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE status = $3
		  AND started_at IS NOT NULL
		  AND started_at < $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, domain.JobStatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stuck video jobs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}
