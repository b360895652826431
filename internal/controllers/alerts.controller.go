package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nazar/internal/models"
	"nazar/internal/services"
)

// AlertLog is the persisted alert history. It may be absent.
type AlertLog interface {
	Recent(limit int) ([]models.Alert, error)
	Acknowledge(id string) error
}

// AlertsController manages the in-memory alert ring and the persisted log.
type AlertsController struct {
	monitor *services.Monitor
	log     AlertLog
	logger  *zap.Logger
}

func NewAlertsController(monitor *services.Monitor, log AlertLog, logger *zap.Logger) *AlertsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertsController{monitor: monitor, log: log, logger: logger}
}

// GetAlerts returns recent alerts, newest first
// Query params: count (default: all)
func (ac *AlertsController) GetAlerts(c *gin.Context) {
	count, ok := intQuery(c, "count", 0)
	if !ok {
		return
	}
	alerts := ac.monitor.GetRecentAlerts(count)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// ClearAlerts empties the in-memory ring; the persisted log is kept
func (ac *AlertsController) ClearAlerts(c *gin.Context) {
	ac.monitor.ClearAlerts()
	c.Status(http.StatusNoContent)
}

// Acknowledge marks an alert as seen
func (ac *AlertsController) Acknowledge(c *gin.Context) {
	id := c.Param("id")
	if err := ac.monitor.Acknowledge(id); err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ac.log != nil {
		if err := ac.log.Acknowledge(id); err != nil {
			ac.logger.Warn("could not acknowledge persisted alert", zap.String("id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "acknowledged": true})
}

// GetAlertLog returns persisted alerts, newest first
// Query params: limit (default: 100)
func (ac *AlertsController) GetAlertLog(c *gin.Context) {
	if ac.log == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert log disabled"})
		return
	}
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		return
	}
	alerts, err := ac.log.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}
