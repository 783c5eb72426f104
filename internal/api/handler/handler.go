package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atlasreach/mediaforge/internal/api/dto"
	"github.com/atlasreach/mediaforge/internal/domain"
	"github.com/atlasreach/mediaforge/internal/edits"
	"github.com/atlasreach/mediaforge/internal/reconcile"
	"github.com/atlasreach/mediaforge/internal/store"
	"github.com/atlasreach/mediaforge/internal/submit"
	"github.com/atlasreach/mediaforge/internal/video"
	"github.com/atlasreach/mediaforge/shared/postgresql"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	DBClient   *postgresql.Client
	Store      *store.Store
	Submitter  *submit.Service
	Reconciler *reconcile.Reconciler
	Edits      *edits.Service
	Videos     *video.Service
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var queryErr *domain.BackendQueryError

	switch {
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrVideoJobNotFound),
		errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrTemplateLoad):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrBackendRejected),
		errors.Is(err, domain.ErrEditProvider),
		errors.As(err, &queryErr):
		logger.Error("Upstream provider error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	default:
		logger.Error("Internal error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func jobDTO(job *domain.Job) dto.JobDTO {
	return dto.JobDTO{
		JobID:             job.ID,
		ModelName:         job.ModelName,
		TemplateName:      job.TemplateName,
		Prompt:            job.Prompt,
		NegativePrompt:    job.NegativePrompt,
		Seed:              job.Seed,
		Params:            job.Params,
		Status:            job.Status,
		ExternalID:        derefString(job.ExternalID),
		ResultURL:         derefString(job.ResultURL),
		ErrorMessage:      derefString(job.ErrorMessage),
		BatchID:           derefString(job.BatchID),
		ReferenceFilename: derefString(job.ReferenceFilename),
		CreatedAt:         job.CreatedAt.Format(time.RFC3339),
		StartedAt:         formatTime(job.StartedAt),
		CompletedAt:       formatTime(job.CompletedAt),
	}
}

func artifactDTO(a *domain.Artifact) dto.ArtifactDTO {
	return dto.ArtifactDTO{
		ArtifactID:        a.ID,
		SourceJobID:       derefString(a.SourceJobID),
		ParentArtifactID:  derefString(a.ParentArtifactID),
		BatchID:           derefString(a.BatchID),
		GroupID:           derefString(a.GroupID),
		EditKind:          a.EditKind,
		StorageURL:        a.StorageURL,
		ReferenceFilename: derefString(a.ReferenceFilename),
		Prompt:            a.Prompt,
		NegativePrompt:    a.NegativePrompt,
		ModelName:         a.ModelName,
		Params:            a.Params,
		IsStarred:         a.IsStarred,
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
	}
}

func videoJobDTO(job *domain.VideoJob) dto.VideoJobDTO {
	return dto.VideoJobDTO{
		JobID:           job.ID,
		Provider:        job.Provider,
		Prompt:          job.Prompt,
		NegativePrompt:  job.NegativePrompt,
		StartImageURL:   job.StartImageURL,
		EndImageURL:     derefString(job.EndImageURL),
		DurationSeconds: job.DurationSeconds,
		Mode:            job.Mode,
		ProviderJobID:   derefString(job.ProviderJobID),
		VideoURL:        derefString(job.VideoURL),
		Status:          job.Status,
		ErrorMessage:    derefString(job.ErrorMessage),
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		StartedAt:       formatTime(job.StartedAt),
		CompletedAt:     formatTime(job.CompletedAt),
	}
}
