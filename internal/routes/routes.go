package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/handlers"
)

// RegisterRoutes mounts every endpoint group under /api. The authed
// middleware is passed down so handler packages decide per-route which
// endpoints require a token.
func RegisterRoutes(r *gin.Engine, h *handlers.AppHandlers, authed gin.HandlerFunc) {
	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.Auth.RegisterRoutes(api, authed)
	h.Tickets.RegisterRoutes(api, authed)
	h.Payments.RegisterRoutes(api, authed)
}
