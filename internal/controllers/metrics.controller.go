package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nazar/internal/services"
)

// MetricsController serves the latest snapshot and its health report.
type MetricsController struct {
	monitor *services.Monitor
}

func NewMetricsController(monitor *services.Monitor) *MetricsController {
	return &MetricsController{monitor: monitor}
}

// GetLatest returns the last collected snapshot with its health report
func (mc *MetricsController) GetLatest(c *gin.Context) {
	eval, ok := mc.monitor.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot collected yet"})
		return
	}
	c.JSON(http.StatusOK, eval)
}

// Refresh collects a fresh snapshot on demand, rate-bounded by the snapshot cache
func (mc *MetricsController) Refresh(c *gin.Context) {
	c.JSON(http.StatusOK, mc.monitor.Refresh(c.Request.Context()))
}

// GetHealth returns only the latest health report
func (mc *MetricsController) GetHealth(c *gin.Context) {
	eval, ok := mc.monitor.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot collected yet"})
		return
	}
	c.JSON(http.StatusOK, eval.Report)
}
