package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the read-only catalog routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/resources")

	group.Use(authMiddleware)
	{
		group.GET("", h.List)    // List bookable instruments
		group.GET("/:id", h.Get) // Get instrument details
	}
}
