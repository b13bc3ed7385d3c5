package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage-service/pkg/middleware"
)

// NewRouter assembles the gin engine for the public player surface, the
// media tree and the internal publish API.
func NewRouter(manifest *ManifestController, media *MediaController, publish *PublishController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContextMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/manifest/:target", manifest.GetManifest)
		v1.GET("/version", manifest.GetVersion)
		v1.GET("/events", manifest.Events)
	}

	r.GET("/media/*filepath", media.Serve)
	r.HEAD("/media/*filepath", media.Serve)

	internal := r.Group("/internal/v1")
	{
		internal.POST("/publish", publish.Publish)
		internal.GET("/publish", publish.JobHistory)
		internal.GET("/publish/:job_id", publish.JobStatus)
	}

	return r
}
