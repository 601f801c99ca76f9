package router

import (
	"github.com/gin-gonic/gin"

	"patro/internal/handler"
	"patro/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	docH *handler.DocumentHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	docs.POST("", docH.Upload)
	docs.GET("", docH.List)
	docs.GET("/:id", docH.GetByID)
	docs.GET("/:id/pages/:page/content", docH.GetPageContent)
	docs.GET("/:id/pages/:page/blocks/:block/table", docH.GetTable)
	docs.POST("/:id/cancel", docH.Cancel)
	docs.POST("/:id/reprocess", docH.Reprocess)
	docs.GET("/:id/logs", docH.ListLogs)
	docs.DELETE("/:id", docH.Delete)

	return r
}
