package routes

import (
	"github.com/gin-gonic/gin"

	"nazar/internal/middleware"
)

// RegisterAuthRoutes registers the websocket endpoint and token checks.
// Tokens are issued only through the CLI.
func RegisterAuthRoutes(r *gin.Engine, h Handlers) {
	if h.WebSocket == nil {
		return
	}
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	auth := r.Group("/auth", middleware.RateLimitMiddleware(middleware.NewTokenRateLimiter(), h.Security))
	{
		auth.GET("/token/status", h.WebSocket.HandleTokenStatus)
	}
}
