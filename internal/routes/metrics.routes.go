package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterMonitorRoutes mounts the snapshot, history, alert and threshold endpoints
func RegisterMonitorRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", h.Metrics.GetHealth)

	metrics := r.Group("/metrics")
	{
		metrics.GET("", h.Metrics.GetLatest)
		metrics.GET("/refresh", h.Metrics.Refresh)
	}

	history := r.Group("/history")
	{
		history.GET("", h.History.GetHistory)
		history.GET("/predict", h.History.GetPrediction)
		history.GET("/trend", h.History.GetTrend)
	}

	alerts := r.Group("/alerts")
	{
		alerts.GET("", h.Alerts.GetAlerts)
		alerts.DELETE("", h.Alerts.ClearAlerts)
		alerts.POST("/:id/ack", h.Alerts.Acknowledge)
		alerts.GET("/log", h.Alerts.GetAlertLog)
	}

	thresholds := r.Group("/thresholds")
	{
		thresholds.GET("", h.Thresholds.GetThresholds)
		thresholds.PUT("", h.Thresholds.UpdateThresholds)
	}
}

// RegisterPrometheusRoute exposes a Prometheus scrape handler
func RegisterPrometheusRoute(r *gin.Engine, handler http.Handler) {
	r.GET("/prometheus", gin.WrapH(handler))
}
