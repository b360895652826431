package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nazar/internal/controllers"
	"nazar/internal/middleware"
)

// Handlers groups every controller the router mounts. Processes and
// WebSocket are optional.
type Handlers struct {
	Metrics    *controllers.MetricsController
	History    *controllers.HistoryController
	Alerts     *controllers.AlertsController
	Thresholds *controllers.ThresholdsController
	Processes  *controllers.ProcessesController
	WebSocket  *controllers.WebSocketController
	Security   *middleware.SecurityLogger
}

// RouterConfig holds the HTTP-facing settings
type RouterConfig struct {
	Mode           string
	AllowedOrigins []string
	AllowedIPs     []string
	RateLimit      float64
	RateBurst      int
}

// NewRouter builds the gin engine with middleware and every route group.
// prom may be nil to skip the scrape endpoint.
func NewRouter(cfg RouterConfig, h Handlers, prom http.Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if h.Security == nil {
		h.Security = middleware.NewSecurityLogger(logger)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.IPWhitelistMiddleware(middleware.NewIPWhitelist(cfg.AllowedIPs), h.Security),
		middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst), h.Security),
	)

	RegisterMonitorRoutes(r, h)
	RegisterProcessRoutes(r, h)
	RegisterAuthRoutes(r, h)
	if prom != nil {
		RegisterPrometheusRoute(r, prom)
	}
	return r
}
