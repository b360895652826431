package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nazar/internal/services"
)

// ThresholdsController reads and updates the live thresholds.
type ThresholdsController struct {
	thresholds *services.ThresholdStore
}

func NewThresholdsController(thresholds *services.ThresholdStore) *ThresholdsController {
	return &ThresholdsController{thresholds: thresholds}
}

// thresholdsUpdate holds the fields a PUT may change; absent fields are kept.
type thresholdsUpdate struct {
	CPUPercent          *float64 `json:"cpu_percent"`
	RAMPercent          *float64 `json:"ram_percent"`
	DiskActivityPercent *float64 `json:"disk_activity_percent"`
	MinFreeDiskGB       *float64 `json:"min_free_disk_gb"`
}

func (u thresholdsUpdate) validate() string {
	for name, v := range map[string]*float64{
		"cpu_percent":           u.CPUPercent,
		"ram_percent":           u.RAMPercent,
		"disk_activity_percent": u.DiskActivityPercent,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return name + " must be within 0..100"
		}
	}
	if u.MinFreeDiskGB != nil && *u.MinFreeDiskGB < 0 {
		return "min_free_disk_gb must not be negative"
	}
	return ""
}

// GetThresholds returns the thresholds in force
func (tc *ThresholdsController) GetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, tc.thresholds.Get())
}

// UpdateThresholds applies a partial update
func (tc *ThresholdsController) UpdateThresholds(c *gin.Context) {
	var req thresholdsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	t := tc.thresholds.Get()
	if req.CPUPercent != nil {
		t.CPUPercent = *req.CPUPercent
	}
	if req.RAMPercent != nil {
		t.RAMPercent = *req.RAMPercent
	}
	if req.DiskActivityPercent != nil {
		t.DiskActivityPercent = *req.DiskActivityPercent
	}
	if req.MinFreeDiskGB != nil {
		t.MinFreeDiskGB = *req.MinFreeDiskGB
	}
	tc.thresholds.Set(t)
	c.JSON(http.StatusOK, t)
}
