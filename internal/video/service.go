package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/domain"
)

// Store is the slice of the metadata store the video service needs
type Store interface {
	CreateVideoJob(ctx context.Context, job *domain.VideoJob) error
	GetVideoJob(ctx context.Context, jobID string) (*domain.VideoJob, error)
	MarkVideoJobProcessing(ctx context.Context, jobID, providerJobID string) error
	MarkVideoJobCompleted(ctx context.Context, jobID, videoURL string) error
	MarkVideoJobFailed(ctx context.Context, jobID, expectedStatus, errorMsg string) error
}

// Service submits video jobs and settles them against their provider
type Service struct {
	logger    *slog.Logger
	store     Store
	providers map[string]Provider
}

// NewService creates a video service over the given providers
func NewService(logger *slog.Logger, store Store, providers ...Provider) *Service {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Service{
		logger:    logger,
		store:     store,
		providers: byName,
	}
}

// SubmitRequest describes one video generation request
type SubmitRequest struct {
	Provider        string
	Prompt          string
	NegativePrompt  string
	StartImageURL   string
	EndImageURL     *string
	DurationSeconds int
	Mode            string
}

// Submit creates a video job record and starts generation with the chosen
// provider. The record never stays QUEUED: provider rejection fails it
// synchronously.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.VideoJob, error) {
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown video provider %q", req.Provider)
	}

	job := &domain.VideoJob{
		ID:              uuid.New().String(),
		Provider:        provider.Name(),
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		StartImageURL:   req.StartImageURL,
		EndImageURL:     req.EndImageURL,
		DurationSeconds: req.DurationSeconds,
		Mode:            req.Mode,
		Status:          domain.JobStatusQueued,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.CreateVideoJob(ctx, job); err != nil {
		return nil, err
	}

	providerJobID, err := provider.Submit(ctx, job)
	if err != nil {
		if failErr := s.store.MarkVideoJobFailed(ctx, job.ID, domain.JobStatusQueued, err.Error()); failErr != nil {
			s.logger.Error("Failed to mark rejected video job failed",
				slog.String("job_id", job.ID),
				slog.String("error", failErr.Error()),
			)
		}

		s.logger.Warn("Video provider rejected job",
			slog.String("job_id", job.ID),
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		return s.store.GetVideoJob(ctx, job.ID)
	}

	if err := s.store.MarkVideoJobProcessing(ctx, job.ID, providerJobID); err != nil {
		return nil, err
	}

	s.logger.Info("Video job submitted",
		slog.String("job_id", job.ID),
		slog.String("provider", provider.Name()),
		slog.String("provider_job_id", providerJobID),
	)

	return s.store.GetVideoJob(ctx, job.ID)
}

// Get returns a video job by id
func (s *Service) Get(ctx context.Context, jobID string) (*domain.VideoJob, error) {
	return s.store.GetVideoJob(ctx, jobID)
}

// Check polls the provider for an in-flight job and applies the verdict,
// returning the refreshed record. Terminal jobs are returned as they are;
// concurrent checks of the same job are safe because transitions are
// conditional on the current status.
func (s *Service) Check(ctx context.Context, jobID string) (*domain.VideoJob, error) {
	job, err := s.store.GetVideoJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusProcessing {
		return job, nil
	}

	provider, ok := s.providers[job.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown video provider %q", job.Provider)
	}

	if job.ProviderJobID == nil || *job.ProviderJobID == "" {
		return nil, fmt.Errorf("video job %s has no provider job id", jobID)
	}

	result, err := provider.Poll(ctx, *job.ProviderJobID)
	if err != nil {
		// Transient: leave the job for the next check or the reaper
		return nil, err
	}

	switch result.State {
	case PollStateCompleted:
		err = s.store.MarkVideoJobCompleted(ctx, job.ID, result.VideoURL)
	case PollStateFailed:
		err = s.store.MarkVideoJobFailed(ctx, job.ID, domain.JobStatusProcessing, result.ErrorMessage)
	default:
		return job, nil
	}

	if err != nil && !errors.Is(err, domain.ErrStateConflict) {
		return nil, err
	}

	return s.store.GetVideoJob(ctx, jobID)
}
