// Package submit creates render jobs and enqueues them on the image backend.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/domain"
	"github.com/atlasreach/mediaforge/internal/template"
)

// RandomSeedSentinel in a request asks for a fresh uniformly-random seed
const RandomSeedSentinel = -1

// seedRange bounds resolved random seeds: [0, 999999999999999)
const seedRange = int64(999999999999999)

// Store is the slice of the metadata store submission needs
type Store interface {
	GetModel(ctx context.Context, name string) (*domain.Model, error)
	CreateJob(ctx context.Context, job *domain.Job) error
	MarkJobProcessing(ctx context.Context, jobID, externalID string) error
	MarkJobFailed(ctx context.Context, jobID, expectedStatus, errorMsg string) error
}

// Backend enqueues filled workflow templates
type Backend interface {
	Enqueue(ctx context.Context, tmpl json.RawMessage, clientTag string) (string, error)
}

// Publisher announces accepted jobs so the worker can check them eagerly.
// Publishing is best effort; a failure never fails the submission.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Config holds submission service dependencies
type Config struct {
	Logger      *slog.Logger
	Store       Store
	Backend     Backend
	Publisher   Publisher
	TemplateDir string
}

// Service submits render jobs
type Service struct {
	logger      *slog.Logger
	store       Store
	backend     Backend
	publisher   Publisher
	templateDir string
}

// NewService creates a submission service
func NewService(cfg *Config) *Service {
	return &Service{
		logger:      cfg.Logger,
		store:       cfg.Store,
		backend:     cfg.Backend,
		publisher:   cfg.Publisher,
		templateDir: cfg.TemplateDir,
	}
}

// Request describes one submission burst
type Request struct {
	ModelName         string
	TemplateName      string // optional override of the model's template
	ReferenceFilename string
	Prompt            string
	NegativePrompt    string
	Params            map[string]interface{}
	Seed              int64 // RandomSeedSentinel resolves a fresh seed per job
	Count             int   // jobs in the burst; <=0 means 1
}

// JobOutcome reports one job of a burst
type JobOutcome struct {
	JobID  string
	Status string
	Error  string
}

// Result reports a full submission burst
type Result struct {
	BatchID string // set when more than one job was created
	Jobs    []JobOutcome
}

// Submit resolves the model and template, then creates and enqueues
// Count jobs. Model and template failures happen before any record is
// written and return synchronously. Per-job enqueue outcomes are
// independent: every created record ends PROCESSING or FAILED, never
// QUEUED.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	model, err := s.store.GetModel(ctx, req.ModelName)
	if err != nil {
		if errors.Is(err, domain.ErrModelNotFound) {
			return nil, fmt.Errorf("%w: model %q", domain.ErrModelNotFound, req.ModelName)
		}
		return nil, err
	}

	templateName := req.TemplateName
	if templateName == "" {
		templateName = model.TemplateName
	}

	doc, err := s.loadTemplate(templateName)
	if err != nil {
		return nil, err
	}

	params, err := mergeParams(model.DefaultParams, req.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTemplateLoad, err)
	}

	prompt := joinFragments(model.PromptPrefix, req.Prompt)
	negative := joinFragments(model.NegativePrompt, req.NegativePrompt)

	count := req.Count
	if count <= 0 {
		count = 1
	}

	var batchID *string
	if count > 1 {
		id := uuid.New().String()
		batchID = &id
	}

	result := &Result{}
	if batchID != nil {
		result.BatchID = *batchID
	}

	for i := 0; i < count; i++ {
		outcome := s.submitOne(ctx, model, templateName, doc, prompt, negative, params, req, batchID)
		result.Jobs = append(result.Jobs, outcome)
	}

	return result, nil
}

// submitOne creates exactly one job record and drives it to PROCESSING or
// FAILED
func (s *Service) submitOne(
	ctx context.Context,
	model *domain.Model,
	templateName, doc, prompt, negative string,
	params map[string]interface{},
	req Request,
	batchID *string,
) JobOutcome {
	seed := resolveSeed(req.Seed)

	vars := make(map[string]interface{}, len(params)+5)
	for k, v := range params {
		vars[k] = v
	}
	vars["checkpoint"] = model.Checkpoint
	vars["prompt"] = prompt
	vars["negative_prompt"] = negative
	vars["seed"] = seed
	if req.ReferenceFilename != "" {
		vars["reference_image"] = req.ReferenceFilename
	}

	paramsJSON, _ := json.Marshal(params)

	job := &domain.Job{
		ID:             uuid.New().String(),
		ModelName:      model.Name,
		TemplateName:   templateName,
		Params:         string(paramsJSON),
		Prompt:         prompt,
		NegativePrompt: negative,
		Seed:           seed,
		Status:         domain.JobStatusQueued,
		BatchID:        batchID,
		CreatedAt:      time.Now().UTC(),
	}
	if req.ReferenceFilename != "" {
		ref := req.ReferenceFilename
		job.ReferenceFilename = &ref
	}

	filled, err := template.Fill(doc, vars)
	if err != nil {
		return JobOutcome{Status: domain.JobStatusFailed, Error: err.Error()}
	}

	// One record per call, written before the backend is contacted
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.logger.Error("Failed to create job record",
			slog.String("model", model.Name),
			slog.String("error", err.Error()),
		)
		return JobOutcome{Status: domain.JobStatusFailed, Error: err.Error()}
	}

	correlationID, err := s.backend.Enqueue(ctx, json.RawMessage(filled), job.ID)
	if err != nil {
		// The record must never stay QUEUED after submission returns
		if failErr := s.store.MarkJobFailed(ctx, job.ID, domain.JobStatusQueued, err.Error()); failErr != nil {
			s.logger.Error("Failed to mark rejected job failed",
				slog.String("job_id", job.ID),
				slog.String("error", failErr.Error()),
			)
		}

		s.logger.Warn("Render backend rejected job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return JobOutcome{JobID: job.ID, Status: domain.JobStatusFailed, Error: err.Error()}
	}

	if err := s.store.MarkJobProcessing(ctx, job.ID, correlationID); err != nil {
		s.logger.Error("Failed to mark job processing",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return JobOutcome{JobID: job.ID, Status: domain.JobStatusFailed, Error: err.Error()}
	}

	s.logger.Info("Job submitted",
		slog.String("job_id", job.ID),
		slog.String("model", model.Name),
		slog.String("correlation_id", correlationID),
		slog.Int64("seed", seed),
	)

	s.announce(ctx, job.ID)

	return JobOutcome{JobID: job.ID, Status: domain.JobStatusProcessing}
}

// announce publishes a job.submitted message, best effort
func (s *Service) announce(ctx context.Context, jobID string) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(domain.JobMessage{JobID: jobID})
	if err != nil {
		return
	}

	if err := s.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		s.logger.Warn("Failed to publish job.submitted message",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// loadTemplate reads and syntax-checks a workflow template
func (s *Service) loadTemplate(name string) (string, error) {
	path := filepath.Join(s.templateDir, name)
	if filepath.Ext(path) == "" {
		path += ".json"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTemplateLoad, err)
	}

	if !json.Valid(data) {
		return "", fmt.Errorf("%w: template %q is not valid JSON", domain.ErrTemplateLoad, name)
	}

	return string(data), nil
}

// resolveSeed maps the sentinel to a fresh uniformly-random seed
func resolveSeed(seed int64) int64 {
	if seed == RandomSeedSentinel {
		return rand.Int63n(seedRange)
	}
	return seed
}

// mergeParams overlays request params on the model's defaults
func mergeParams(defaults string, overrides map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{})

	if defaults != "" {
		if err := json.Unmarshal([]byte(defaults), &merged); err != nil {
			return nil, fmt.Errorf("invalid model default params: %w", err)
		}
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return merged, nil
}

// joinFragments concatenates model-level and request-level prompt fragments
func joinFragments(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + ", " + b
	}
}
