package routes

import (
	"github.com/gin-gonic/gin"
)

func RegisterProcessRoutes(r *gin.Engine, h Handlers) {
	if h.Processes == nil {
		return
	}
	processes := r.Group("/processes")
	{
		processes.GET("", h.Processes.GetTopProcesses)
	}
}
