package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasreach/mediaforge/internal/api/dto"
	"github.com/atlasreach/mediaforge/internal/domain"
	"github.com/atlasreach/mediaforge/internal/edits"
)

// EditHandler handles derived-artifact HTTP requests
type EditHandler struct {
	logger *slog.Logger
	edits  *edits.Service
}

// NewEditHandler creates a new EditHandler instance
func NewEditHandler(deps *Dependencies) *EditHandler {
	return &EditHandler{
		logger: deps.Logger,
		edits:  deps.Edits,
	}
}

// FaceSwap handles POST /api/v1/edits/face-swap
func (h *EditHandler) FaceSwap(c *gin.Context) {
	var req dto.FaceSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	child, err := h.edits.FaceSwap(c.Request.Context(), req.ArtifactID, req.FaceImageURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, artifactDTO(child))
}

// FaceSwapGroup handles POST /api/v1/edits/face-swap/group
func (h *EditHandler) FaceSwapGroup(c *gin.Context) {
	var req dto.FaceSwapGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.GroupID == "" && req.BatchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "group_id or batch_id is required",
		})
		return
	}

	result, err := h.edits.FaceSwapGroup(c.Request.Context(), req.GroupID, req.BatchID, req.FaceImageURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.FaceSwapGroupResponse{
		Succeeded: groupOutcomes(result.Succeeded),
		Failed:    groupOutcomes(result.Failed),
	})
}

func groupOutcomes(outcomes []edits.GroupOutcome) []dto.GroupOutcomeDTO {
	dtos := make([]dto.GroupOutcomeDTO, len(outcomes))
	for i, o := range outcomes {
		dtos[i] = dto.GroupOutcomeDTO{
			SourceID: o.SourceID,
			ChildID:  o.ChildID,
			Error:    o.Error,
		}
	}
	return dtos
}

// PromptEdit handles POST /api/v1/edits/prompt
func (h *EditHandler) PromptEdit(c *gin.Context) {
	var req dto.PromptEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	child, err := h.edits.PromptEdit(c.Request.Context(), req.ArtifactID, req.Prompt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, artifactDTO(child))
}

// Variations handles POST /api/v1/edits/variations
func (h *EditHandler) Variations(c *gin.Context) {
	var req dto.VariationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	children, err := h.edits.Variations(c.Request.Context(), req.ArtifactID, req.Count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, variationsResponse(children))
}

// CarouselVariations handles POST /api/v1/edits/carousel
func (h *EditHandler) CarouselVariations(c *gin.Context) {
	var req dto.VariationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	children, err := h.edits.CarouselVariations(c.Request.Context(), req.ArtifactID, req.Count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, variationsResponse(children))
}

func variationsResponse(children []*domain.Artifact) dto.VariationsResponse {
	artifacts := make([]dto.ArtifactDTO, len(children))
	for i, child := range children {
		artifacts[i] = artifactDTO(child)
	}
	return dto.VariationsResponse{Artifacts: artifacts}
}

// Blend handles POST /api/v1/edits/blend
func (h *EditHandler) Blend(c *gin.Context) {
	var req dto.BlendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	child, err := h.edits.Blend(c.Request.Context(), req.PrimaryArtifactID, req.SecondaryArtifactID, req.Prompt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, artifactDTO(child))
}
