package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/api/dto"
	"github.com/atlasreach/mediaforge/internal/reconcile"
	"github.com/atlasreach/mediaforge/internal/store"
	"github.com/atlasreach/mediaforge/internal/submit"
)

// JobHandler handles render job HTTP requests
type JobHandler struct {
	logger     *slog.Logger
	store      *store.Store
	submitter  *submit.Service
	reconciler *reconcile.Reconciler
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		store:      deps.Store,
		submitter:  deps.Submitter,
		reconciler: deps.Reconciler,
	}
}

// SubmitJob handles POST /api/v1/jobs
// Creates and enqueues one or more render jobs
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	seed := int64(submit.RandomSeedSentinel)
	if req.Seed != nil {
		seed = *req.Seed
	}

	result, err := h.submitter.Submit(c.Request.Context(), submit.Request{
		ModelName:         req.ModelName,
		TemplateName:      req.TemplateName,
		ReferenceFilename: req.ReferenceFilename,
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		Params:            req.Params,
		Seed:              seed,
		Count:             req.Count,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	outcomes := make([]dto.JobOutcomeDTO, len(result.Jobs))
	for i, outcome := range result.Jobs {
		outcomes[i] = dto.JobOutcomeDTO{
			JobID:  outcome.JobID,
			Status: outcome.Status,
			Error:  outcome.Error,
		}
	}

	c.JSON(http.StatusAccepted, dto.SubmitJobResponse{
		BatchID: result.BatchID,
		Jobs:    outcomes,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobDTO(job))
}

// CheckJob handles POST /api/v1/jobs/:job_id/check
// Runs one reconciliation step for a single job and returns its fresh state
func (h *JobHandler) CheckJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.reconciler.CheckJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, jobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), store.JobFilter{
		Status:    req.Status,
		ModelName: req.ModelName,
		BatchID:   req.BatchID,
		PageSize:  req.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = jobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		last := jobs[len(jobs)-1]
		nextCursor = EncodeCursor(&store.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}
