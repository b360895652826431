package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nazar/internal/services"
)

type ProcessesController struct {
	collector *services.ProcessCollector
}

func NewProcessesController(collector *services.ProcessCollector) *ProcessesController {
	return &ProcessesController{collector: collector}
}

// GetTopProcesses returns the top 20 processes by CPU + memory usage with totals
func (pc *ProcessesController) GetTopProcesses(c *gin.Context) {
	processes, totalCPU, totalMem, lastUpdated := pc.collector.Cached()
	c.JSON(http.StatusOK, gin.H{
		"processes":         processes,
		"total_cpu_percent": totalCPU,
		"total_mem_percent": totalMem,
		"last_updated":      lastUpdated,
	})
}
