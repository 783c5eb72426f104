package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/api/dto"
	"github.com/atlasreach/mediaforge/internal/video"
)

// VideoHandler handles video job HTTP requests
type VideoHandler struct {
	logger *slog.Logger
	videos *video.Service
}

// NewVideoHandler creates a new VideoHandler instance
func NewVideoHandler(deps *Dependencies) *VideoHandler {
	return &VideoHandler{
		logger: deps.Logger,
		videos: deps.Videos,
	}
}

// SubmitVideo handles POST /api/v1/videos
func (h *VideoHandler) SubmitVideo(c *gin.Context) {
	var req dto.SubmitVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 5
	}

	job, err := h.videos.Submit(c.Request.Context(), video.SubmitRequest{
		Provider:        req.Provider,
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		StartImageURL:   req.StartImageURL,
		EndImageURL:     req.EndImageURL,
		DurationSeconds: req.DurationSeconds,
		Mode:            req.Mode,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, videoJobDTO(job))
}

// GetVideo handles GET /api/v1/videos/:job_id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.videos.Get(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, videoJobDTO(job))
}

// CheckVideo handles POST /api/v1/videos/:job_id/check
// Polls the provider for an in-flight job and returns its fresh state
func (h *VideoHandler) CheckVideo(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.videos.Check(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, videoJobDTO(job))
}
