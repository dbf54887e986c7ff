package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/commercekit/popularity/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig, sessionCookie string) {
	// Health check endpoint (no session, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes; every request resolves its visitor session and
	// privileged flag, both feed the recording guard
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Session(sessionCookie))
	v1.Use(middleware.DetectPrivileged(authCfg))
	{
		// Event recording
		v1.POST("/events/view", handler.RecordView)
		v1.POST("/events/cart", handler.RecordCartAdd)
		v1.POST("/events/list", handler.RecordListAdd)
		v1.POST("/events/purchase", handler.RecordPurchase)

		// Score queries (public read access)
		v1.GET("/products/popular", handler.ListPopularProducts)
		v1.GET("/products/:id/scores", handler.GetProductScores)
		v1.GET("/products/:id/scores/:year/:month", handler.GetProductScoreForMonth)

		// Session viewed-set management
		v1.DELETE("/session/viewed/:id", handler.MarkNotViewed)
	}
}
