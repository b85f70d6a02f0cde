package http

import (
	"github.com/gin-gonic/gin"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
)

// RegisterRoutes registers booking routes. previewLimiter guards the
// conflict preview, which clients call on every picker change; it may be nil.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, previewLimiter gin.HandlerFunc) {
	group := g.Group("/bookings")

	group.Use(authMiddleware)
	{
		group.GET("/time-slots", h.TimeSlots) // Picker options
		group.POST("/resolve", h.ResolveRange)

		preview := []gin.HandlerFunc{h.DetectConflicts}
		if previewLimiter != nil {
			preview = []gin.HandlerFunc{previewLimiter, h.DetectConflicts}
		}
		group.POST("/conflicts", preview...)

		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Edit)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/decision", auth.RequireRole(string(booking.RoleAdmin), string(booking.RoleApprover)), h.Decide)
		group.GET("/:id/ics", h.DownloadICS)
	}
}
