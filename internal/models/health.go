package models

import (
	"slices"
	"time"
)

// Severity grades an issue or alert
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// HealthStatus is the categorical form of a health score
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "Healthy"
	StatusWarning  HealthStatus = "Warning"
	StatusCritical HealthStatus = "Critical"
)

// Source tags shared by issues and alerts
const (
	SourceCPU       = "CPU"
	SourceRAM       = "RAM"
	SourceDiskIO    = "Disk I/O"
	SourceDiskSpace = "Disk Space"
	SourceNetwork   = "Network"
)

// Thresholds are the limits every evaluation is judged against
type Thresholds struct {
	CPUPercent          float64 `json:"cpu_percent" yaml:"cpuPercent"`
	RAMPercent          float64 `json:"ram_percent" yaml:"ramPercent"`
	DiskActivityPercent float64 `json:"disk_activity_percent" yaml:"diskActivityPercent"`
	MinFreeDiskGB       float64 `json:"min_free_disk_gb" yaml:"minFreeDiskGB"`
}

// Issue is a single finding of a health evaluation
type Issue struct {
	Source       string    `json:"source"`
	Description  string    `json:"description"`
	Severity     Severity  `json:"severity"`
	SuggestedFix string    `json:"suggested_fix"`
	Timestamp    time.Time `json:"timestamp"`
}

// HealthReport is derived from one snapshot and the thresholds in force
type HealthReport struct {
	Timestamp   time.Time    `json:"timestamp"`
	HealthScore int          `json:"health_score"`
	Status      HealthStatus `json:"status"`
	Issues      []Issue      `json:"issues"`
}

// Clone returns a copy that shares no memory with r.
func (r HealthReport) Clone() HealthReport {
	r.Issues = slices.Clone(r.Issues)
	return r
}

// Count returns how many issues carry the given severity.
func (r HealthReport) Count(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}
