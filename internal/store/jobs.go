package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlasreach/mediaforge/internal/domain"
)

const jobColumns = `
	job_id, model_name, template_name, params, prompt, negative_prompt, seed,
	status, external_id, result_url, error_message, batch_id,
	reference_filename, created_at, started_at, completed_at
`

// CreateJob inserts a new job record. Submission writes it with status
// QUEUED before the backend is contacted.
func (s *Store) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, model_name, template_name, params, prompt, negative_prompt,
			seed, status, batch_id, reference_filename, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.ModelName,
		job.TemplateName,
		job.Params,
		job.Prompt,
		job.NegativePrompt,
		job.Seed,
		job.Status,
		job.BatchID,
		job.ReferenceFilename,
		job.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by id
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter narrows ListJobs results
type JobFilter struct {
	Status    string
	ModelName string
	BatchID   string
	PageSize  int
	Cursor    *Cursor
}

// ListJobs returns jobs newest first with cursor pagination. One extra row
// beyond PageSize is returned when more results exist.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.ModelName != "" {
		query += fmt.Sprintf(" AND model_name = $%d", argIdx)
		args = append(args, filter.ModelName)
		argIdx++
	}

	if filter.BatchID != "" {
		query += fmt.Sprintf(" AND batch_id = $%d", argIdx)
		args = append(args, filter.BatchID)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// ListProcessingJobs returns up to limit PROCESSING jobs, oldest first, so
// sweeps treat long-waiting jobs fairly.
func (s *Store) ListProcessingJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC, job_id ASC
		LIMIT $2
	`

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, domain.JobStatusProcessing, limit); err != nil {
		return nil, fmt.Errorf("failed to list processing jobs: %w", err)
	}

	return jobs, nil
}

// MarkJobProcessing transitions QUEUED -> PROCESSING, recording the
// backend's correlation id and the start timestamp. Returns ErrStateConflict
// if the job already left QUEUED.
func (s *Store) MarkJobProcessing(ctx context.Context, jobID, externalID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    external_id = $2,
		    started_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusProcessing, externalID, jobID, domain.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	return s.requireRow(result, jobID, domain.JobStatusProcessing)
}

// MarkJobCompleted transitions PROCESSING -> COMPLETED with the result
// reference. Returns ErrStateConflict when another writer already moved the
// job out of PROCESSING.
func (s *Store) MarkJobCompleted(ctx context.Context, jobID, resultURL string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result_url = $2,
		    completed_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, resultURL, jobID, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	return s.requireRow(result, jobID, domain.JobStatusCompleted)
}

// MarkJobFailed transitions expectedStatus -> FAILED with an error message.
// Submission uses it from QUEUED, the reconciler and reaper from PROCESSING.
func (s *Store) MarkJobFailed(ctx context.Context, jobID, expectedStatus, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID, expectedStatus)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return s.requireRow(result, jobID, domain.JobStatusFailed)
}

// ReapStuckJobs force-fails PROCESSING jobs whose started_at is older than
// cutoff and returns how many were reaped.
func (s *Store) ReapStuckJobs(ctx context.Context, cutoff time.Time, errorMsg string) (int, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE status = $3
		  AND started_at IS NOT NULL
		  AND started_at < $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, domain.JobStatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stuck jobs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}

// requireRow converts a zero-row conditional update into ErrStateConflict
func (s *Store) requireRow(result sql.Result, jobID, target string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		s.logger.Warn("Conditional job transition matched no rows",
			slog.String("job_id", jobID),
			slog.String("target_status", target),
		)
		return domain.ErrStateConflict
	}

	return nil
}
