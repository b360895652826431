package services

import (
	"fmt"

	"nazar/internal/models"
)

const (
	// nearThresholdRatio is where CPU, RAM and disk I/O start to be reported
	// before the threshold itself is reached.
	nearThresholdRatio = 0.85

	criticalPenalty = 25
	warningPenalty  = 10

	healthyScore = 80
	warningScore = 50
)

var suggestedFixes = map[string]string{
	models.SourceCPU:       "Close CPU-heavy applications or check the top processes list for runaway tasks.",
	models.SourceRAM:       "Close unused applications or browser tabs to free memory.",
	models.SourceDiskIO:    "Pause large file transfers, backups or indexing jobs.",
	models.SourceDiskSpace: "Remove temporary files, empty the trash or move data to another drive.",
	models.SourceNetwork:   "Check cables, Wi-Fi and network adapter settings.",
}

// SuggestedFix returns the canned remediation text for a source tag.
func SuggestedFix(source string) string {
	if fix, ok := suggestedFixes[source]; ok {
		return fix
	}
	return "Investigate the affected component."
}

// Evaluate maps a snapshot and thresholds to a health report.
// It is pure: identical inputs always produce identical reports.
func Evaluate(s models.Snapshot, t models.Thresholds) models.HealthReport {
	var issues []models.Issue
	add := func(source string, sev models.Severity, format string, args ...any) {
		issues = append(issues, models.Issue{
			Source:       source,
			Description:  fmt.Sprintf(format, args...),
			Severity:     sev,
			SuggestedFix: SuggestedFix(source),
			Timestamp:    s.Timestamp,
		})
	}

	// CPU and RAM: critical at the threshold, warning when approaching it.
	switch {
	case s.CPUPercent >= t.CPUPercent:
		add(models.SourceCPU, models.SeverityCritical,
			"CPU usage at %.1f%% (threshold %.0f%%)", s.CPUPercent, t.CPUPercent)
	case s.CPUPercent >= nearThresholdRatio*t.CPUPercent:
		add(models.SourceCPU, models.SeverityWarning,
			"CPU usage at %.1f%% approaching threshold %.0f%%", s.CPUPercent, t.CPUPercent)
	}

	ram := s.RAMPercent()
	switch {
	case ram >= t.RAMPercent:
		add(models.SourceRAM, models.SeverityCritical,
			"RAM usage at %.1f%% (threshold %.0f%%)", ram, t.RAMPercent)
	case ram >= nearThresholdRatio*t.RAMPercent:
		add(models.SourceRAM, models.SeverityWarning,
			"RAM usage at %.1f%% approaching threshold %.0f%%", ram, t.RAMPercent)
	}

	// Disk I/O is busy rather than broken: warning at the threshold, info below.
	switch {
	case s.DiskActivityPercent >= t.DiskActivityPercent:
		add(models.SourceDiskIO, models.SeverityWarning,
			"Disk activity at %.1f%% (threshold %.0f%%)", s.DiskActivityPercent, t.DiskActivityPercent)
	case s.DiskActivityPercent >= nearThresholdRatio*t.DiskActivityPercent:
		add(models.SourceDiskIO, models.SeverityInfo,
			"Disk activity elevated at %.1f%%", s.DiskActivityPercent)
	}

	if p, ok := s.LowestFreePartition(); ok {
		switch {
		case p.FreeGB < t.MinFreeDiskGB:
			add(models.SourceDiskSpace, models.SeverityCritical,
				"Only %.1f GB free on %s (minimum %.0f GB)", p.FreeGB, p.Path, t.MinFreeDiskGB)
		case p.FreeGB < 2*t.MinFreeDiskGB:
			add(models.SourceDiskSpace, models.SeverityWarning,
				"Low disk space on %s: %.1f GB free", p.Path, p.FreeGB)
		}
	}

	report := models.HealthReport{
		Timestamp: s.Timestamp,
		Issues:    issues,
	}
	report.HealthScore = score(report)
	report.Status = statusFor(report.HealthScore)
	return report
}

func score(r models.HealthReport) int {
	v := 100 - criticalPenalty*r.Count(models.SeverityCritical) - warningPenalty*r.Count(models.SeverityWarning)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func statusFor(score int) models.HealthStatus {
	switch {
	case score >= healthyScore:
		return models.StatusHealthy
	case score >= warningScore:
		return models.StatusWarning
	default:
		return models.StatusCritical
	}
}
