package router

import (
	"github.com/gin-gonic/gin"

	"github.com/aliskhannn/photo-pipeline/internal/api/handlers/photo"
	"github.com/aliskhannn/photo-pipeline/internal/middleware"
)

// Setup registers the health check and the metadata callback route.
func Setup(h *photo.Handler) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	api := r.Group("/api")

	api.POST("/photos/update_meta", h.UpdateMeta) // pipeline metadata callback

	return r
}
