package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// GetModel retrieves registry metadata for a model by name
func (s *Store) GetModel(ctx context.Context, name string) (*domain.Model, error) {
	var model domain.Model
	query := `
		SELECT model_name, checkpoint, template_name, prompt_prefix,
		       negative_prompt, default_params, created_at
		FROM models
		WHERE model_name = $1
	`

	err := s.db.GetContext(ctx, &model, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return &model, nil
}

// ListModels returns all registered models
func (s *Store) ListModels(ctx context.Context) ([]domain.Model, error) {
	query := `
		SELECT model_name, checkpoint, template_name, prompt_prefix,
		       negative_prompt, default_params, created_at
		FROM models
		ORDER BY model_name ASC
	`

	var models []domain.Model
	if err := s.db.SelectContext(ctx, &models, query); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	return models, nil
}
