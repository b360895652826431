package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nazar/internal/services"
)

// HistoryController exposes the collector history and forecasts over it.
type HistoryController struct {
	monitor *services.Monitor
}

func NewHistoryController(monitor *services.Monitor) *HistoryController {
	return &HistoryController{monitor: monitor}
}

// GetHistory returns recent snapshots, oldest first
// Query params: count (default: all)
func (hc *HistoryController) GetHistory(c *gin.Context) {
	count, ok := intQuery(c, "count", 0)
	if !ok {
		return
	}
	snapshots := hc.monitor.GetRecentSnapshots(count)
	c.JSON(http.StatusOK, gin.H{
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

// GetPrediction forecasts the next value of a metric series
// Query params: metric=cpu|ram|disk_activity|disk_free|upload|download|processes,
// count (default: 60), floor (default: 0)
func (hc *HistoryController) GetPrediction(c *gin.Context) {
	metric := c.DefaultQuery("metric", services.MetricCPU)
	count, ok := intQuery(c, "count", 60)
	if !ok {
		return
	}
	floor, ok := floatQuery(c, "floor", 0)
	if !ok {
		return
	}

	forecast, err := hc.monitor.Forecast(metric, count, floor)
	switch {
	case errors.Is(err, services.ErrUnknownMetric):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metric"})
		return
	case errors.Is(err, services.ErrNoSamples):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no samples collected yet"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, forecast)
}

// GetTrend labels the moving-average direction of a metric series
// Query params: metric, window (default: 10), deadband (default: 2)
func (hc *HistoryController) GetTrend(c *gin.Context) {
	metric := c.DefaultQuery("metric", services.MetricCPU)
	window, ok := intQuery(c, "window", services.DefaultTrendWindow)
	if !ok {
		return
	}
	deadband, ok := floatQuery(c, "deadband", services.DefaultTrendDeadband)
	if !ok {
		return
	}

	trend, err := hc.monitor.TrendOf(metric, window, deadband)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metric"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metric":   metric,
		"window":   window,
		"deadband": deadband,
		"trend":    trend,
	})
}

// intQuery parses a non-negative integer query parameter, writing a 400 on failure.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// floatQuery parses a finite float query parameter, writing a 400 on failure.
func floatQuery(c *gin.Context, name string, def float64) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
