package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atlasreach/mediaforge/internal/api/dto"
	"github.com/atlasreach/mediaforge/internal/store"
)

// GalleryHandler handles artifact gallery HTTP requests
type GalleryHandler struct {
	logger *slog.Logger
	store  *store.Store
}

// NewGalleryHandler creates a new GalleryHandler instance
func NewGalleryHandler(deps *Dependencies) *GalleryHandler {
	return &GalleryHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}

// ListArtifacts handles GET /api/v1/gallery
// Lists live artifacts newest first with optional starred/group/batch filters
func (h *GalleryHandler) ListArtifacts(c *gin.Context) {
	var req dto.ListArtifactsRequest
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

	artifacts, err := h.store.ListArtifacts(c.Request.Context(), store.ArtifactFilter{
		Starred:  req.Starred,
		GroupID:  req.GroupID,
		BatchID:  req.BatchID,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	hasMore := len(artifacts) > req.PageSize
	if hasMore {
		artifacts = artifacts[:req.PageSize]
	}

	response := make([]dto.ArtifactDTO, len(artifacts))
	for i := range artifacts {
		response[i] = artifactDTO(&artifacts[i])
	}

	var nextCursor string
	if hasMore {
		last := artifacts[len(artifacts)-1]
		nextCursor = EncodeCursor(&store.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListArtifactsResponse{
		Artifacts:  response,
		NextCursor: nextCursor,
	})
}

// StarArtifact handles POST /api/v1/gallery/:artifact_id/star
func (h *GalleryHandler) StarArtifact(c *gin.Context) {
	artifactID := c.Param("artifact_id")
	if _, err := uuid.Parse(artifactID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "artifact_id must be a valid UUID",
		})
		return
	}

	var req dto.StarArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if err := h.store.SetArtifactStarred(c.Request.Context(), artifactID, req.Starred); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artifact_id": artifactID,
		"is_starred":  req.Starred,
	})
}

// DeleteArtifact handles DELETE /api/v1/gallery/:artifact_id
// Soft-deletes: the row stays for lineage, the gallery stops showing it
func (h *GalleryHandler) DeleteArtifact(c *gin.Context) {
	artifactID := c.Param("artifact_id")
	if _, err := uuid.Parse(artifactID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "artifact_id must be a valid UUID",
		})
		return
	}

	if err := h.store.SoftDeleteArtifact(c.Request.Context(), artifactID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AssignGroup handles POST /api/v1/gallery/group
// Links a set of artifacts under one group id, minting one when absent
func (h *GalleryHandler) AssignGroup(c *gin.Context) {
	var req dto.AssignGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if len(req.ArtifactIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "artifact_ids must not be empty",
		})
		return
	}

	groupID := req.GroupID
	if groupID == "" {
		groupID = uuid.New().String()
	}

	if err := h.store.AssignGroup(c.Request.Context(), req.ArtifactIDs, groupID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.AssignGroupResponse{
		GroupID:     groupID,
		ArtifactIDs: req.ArtifactIDs,
	})
}
