package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctpipe/uploadq/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes.
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	uploadHandler := handler.NewUploadHandler(deps)

	// Liveness probe, no store access.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "upload-api-service",
		})
	})

	api := r.Group("/api")
	{
		// Snapshots consumed by polling clients.
		api.GET("/stats", uploadHandler.GetStats)
		api.GET("/queue", uploadHandler.GetQueue)
		api.GET("/health", uploadHandler.Health)

		// Upload commands.
		api.POST("/upload", uploadHandler.CreateUpload)
		api.GET("/upload/:job_id", uploadHandler.GetUpload)
		api.DELETE("/upload/:job_id", uploadHandler.CancelUpload)

		// Platform connectivity.
		platforms := api.Group("/platforms")
		{
			platforms.GET("", uploadHandler.GetPlatforms)
			platforms.POST("/:platform/connect", uploadHandler.ConnectPlatform)
			platforms.POST("/:platform/disconnect", uploadHandler.DisconnectPlatform)
		}
	}

	return r
}
