package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/atlasreach/mediaforge/internal/domain"
)

const artifactColumns = `
	artifact_id, source_job_id, parent_artifact_id, batch_id, group_id,
	edit_kind, storage_url, reference_filename, prompt, negative_prompt,
	model_name, params, is_starred, is_deleted, deleted_at, created_at
`

// CreateArtifact inserts a new artifact row. The partial unique index on
// source_job_id makes a second reconciliation of the same completed job a
// no-op instead of a duplicate gallery entry.
func (s *Store) CreateArtifact(ctx context.Context, a *domain.Artifact) error {
	query := `
		INSERT INTO artifacts (
			artifact_id, source_job_id, parent_artifact_id, batch_id, group_id,
			edit_kind, storage_url, reference_filename, prompt, negative_prompt,
			model_name, params, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		)
		ON CONFLICT (source_job_id) WHERE source_job_id IS NOT NULL DO NOTHING
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.SourceJobID,
		a.ParentArtifactID,
		a.BatchID,
		a.GroupID,
		a.EditKind,
		a.StorageURL,
		a.ReferenceFilename,
		a.Prompt,
		a.NegativePrompt,
		a.ModelName,
		a.Params,
		a.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		s.logger.Warn("Artifact already exists for job, skipping insert",
			slog.Any("source_job_id", a.SourceJobID),
		)
	}

	return nil
}

// GetArtifact retrieves an artifact by id, soft-deleted ones included so
// lineage traversal keeps working
func (s *Store) GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	var a domain.Artifact
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE artifact_id = $1`

	err := s.db.GetContext(ctx, &a, query, artifactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return &a, nil
}

// ArtifactFilter narrows ListArtifacts results
type ArtifactFilter struct {
	Starred  *bool
	GroupID  string
	BatchID  string
	PageSize int
	Cursor   *Cursor
}

// ListArtifacts returns gallery artifacts newest first, always excluding
// soft-deleted rows. One extra row beyond PageSize signals more results.
func (s *Store) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]domain.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE is_deleted = FALSE`
	args := []interface{}{}
	argIdx := 1

	if filter.Starred != nil {
		query += fmt.Sprintf(" AND is_starred = $%d", argIdx)
		args = append(args, *filter.Starred)
		argIdx++
	}

	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND group_id = $%d", argIdx)
		args = append(args, filter.GroupID)
		argIdx++
	}

	if filter.BatchID != "" {
		query += fmt.Sprintf(" AND batch_id = $%d", argIdx)
		args = append(args, filter.BatchID)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, artifact_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, artifact_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var artifacts []domain.Artifact
	if err := s.db.SelectContext(ctx, &artifacts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	return artifacts, nil
}

// ListGroupMembers returns live artifacts sharing a group id
func (s *Store) ListGroupMembers(ctx context.Context, groupID string) ([]domain.Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE group_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC, artifact_id ASC
	`

	var artifacts []domain.Artifact
	if err := s.db.SelectContext(ctx, &artifacts, query, groupID); err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}

	return artifacts, nil
}

// ListBatchMembers returns live artifacts sharing a batch id
func (s *Store) ListBatchMembers(ctx context.Context, batchID string) ([]domain.Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE batch_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC, artifact_id ASC
	`

	var artifacts []domain.Artifact
	if err := s.db.SelectContext(ctx, &artifacts, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to list batch members: %w", err)
	}

	return artifacts, nil
}

// SetArtifactStarred toggles the starred flag
func (s *Store) SetArtifactStarred(ctx context.Context, artifactID string, starred bool) error {
	query := `UPDATE artifacts SET is_starred = $1 WHERE artifact_id = $2 AND is_deleted = FALSE`

	result, err := s.db.ExecContext(ctx, query, starred, artifactID)
	if err != nil {
		return fmt.Errorf("failed to update artifact star: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return domain.ErrArtifactNotFound
	}

	return nil
}

// SoftDeleteArtifact hides an artifact from gallery listings while keeping
// the row for lineage traversal
func (s *Store) SoftDeleteArtifact(ctx context.Context, artifactID string) error {
	query := `
		UPDATE artifacts
		SET is_deleted = TRUE,
		    deleted_at = NOW()
		WHERE artifact_id = $1
		  AND is_deleted = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, artifactID)
	if err != nil {
		return fmt.Errorf("failed to soft delete artifact: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return domain.ErrArtifactNotFound
	}

	return nil
}

// AssignGroup sets group_id on every listed artifact
func (s *Store) AssignGroup(ctx context.Context, artifactIDs []string, groupID string) error {
	if len(artifactIDs) == 0 {
		return nil
	}

	query := `UPDATE artifacts SET group_id = $1 WHERE artifact_id = ANY($2)`

	_, err := s.db.ExecContext(ctx, query, groupID, pq.Array(artifactIDs))
	if err != nil {
		return fmt.Errorf("failed to assign group: %w", err)
	}

	return nil
}
