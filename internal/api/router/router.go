package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasreach/mediaforge/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "mediaforge-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	galleryHandler := handler.NewGalleryHandler(deps)
	editHandler := handler.NewEditHandler(deps)
	videoHandler := handler.NewVideoHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit render jobs (count > 1 mints a batch)
			jobs.POST("", jobHandler.SubmitJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:job_id/check - Run one reconciliation step
			jobs.POST("/:job_id/check", jobHandler.CheckJob)
		}

		gallery := v1.Group("/gallery")
		{
			// GET /api/v1/gallery - List live artifacts
			gallery.GET("", galleryHandler.ListArtifacts)

			// POST /api/v1/gallery/group - Assign a group id to a set
			gallery.POST("/group", galleryHandler.AssignGroup)

			// POST /api/v1/gallery/:artifact_id/star - Toggle the star flag
			gallery.POST("/:artifact_id/star", galleryHandler.StarArtifact)

			// DELETE /api/v1/gallery/:artifact_id - Soft-delete an artifact
			gallery.DELETE("/:artifact_id", galleryHandler.DeleteArtifact)
		}

		edits := v1.Group("/edits")
		{
			// POST /api/v1/edits/face-swap - Destructive single face swap
			edits.POST("/face-swap", editHandler.FaceSwap)

			// POST /api/v1/edits/face-swap/group - Swap across a group or batch
			edits.POST("/face-swap/group", editHandler.FaceSwapGroup)

			// POST /api/v1/edits/prompt - Prompt-guided edit
			edits.POST("/prompt", editHandler.PromptEdit)

			// POST /api/v1/edits/variations - N-way variations, fresh batch
			edits.POST("/variations", editHandler.Variations)

			// POST /api/v1/edits/carousel - Variations continuing the source batch
			edits.POST("/carousel", editHandler.CarouselVariations)

			// POST /api/v1/edits/blend - Two-source blend
			edits.POST("/blend", editHandler.Blend)
		}

		videos := v1.Group("/videos")
		{
			// POST /api/v1/videos - Submit a video job
			videos.POST("", videoHandler.SubmitVideo)

			// GET /api/v1/videos/:job_id - Get video job details
			videos.GET("/:job_id", videoHandler.GetVideo)

			// POST /api/v1/videos/:job_id/check - Poll the provider
			videos.POST("/:job_id/check", videoHandler.CheckVideo)
		}
	}

	return r
}
