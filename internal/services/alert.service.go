package services

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nazar/internal/models"
)

// ErrAlertNotFound is returned when acknowledging an unknown alert ID
var ErrAlertNotFound = errors.New("alert not found")

// AlertConfig controls alert retention, de-duplication and sustain streaks.
type AlertConfig struct {
	Capacity    int
	DedupWindow time.Duration
	// Sustain streaks are counted in ticks. They assume a fixed sampling
	// interval; use SustainTicks to derive them from a duration.
	CPUSustainTicks int
	RAMSustainTicks int
}

// DefaultAlertConfig matches a 2 second sampling interval.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Capacity:        200,
		DedupWindow:     30 * time.Second,
		CPUSustainTicks: 5,
		RAMSustainTicks: 3,
	}
}

// SustainTicks converts a sustain duration into a tick count for the given
// sampling interval, rounding up and never returning less than one tick.
func SustainTicks(sustain, interval time.Duration) int {
	if interval <= 0 || sustain <= 0 {
		return 1
	}
	ticks := int(math.Ceil(float64(sustain) / float64(interval)))
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// AlertEngine turns snapshots into de-duplicated alerts.
//
// fireMu serialises firing and publishing so subscribers see alerts in the
// order they were stored. mu guards the alert list and streak counters and is
// never held while subscribers run, so subscribers may read the engine. They
// must not call Process or Fire.
type AlertEngine struct {
	cfg        AlertConfig
	thresholds *ThresholdStore
	logger     *zap.Logger
	now        func() time.Time

	fireMu sync.Mutex

	mu        sync.RWMutex
	alerts    []models.Alert // newest first
	cpuStreak int
	ramStreak int

	subscribers *Broadcaster[models.Alert]
}

// AlertOption customises an AlertEngine
type AlertOption func(*AlertEngine)

// WithAlertClock replaces time.Now, mainly for tests.
func WithAlertClock(now func() time.Time) AlertOption {
	return func(e *AlertEngine) { e.now = now }
}

// NewAlertEngine creates an engine reading thresholds from the given store.
func NewAlertEngine(cfg AlertConfig, thresholds *ThresholdStore, logger *zap.Logger, opts ...AlertOption) *AlertEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultAlertConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	if cfg.CPUSustainTicks <= 0 {
		cfg.CPUSustainTicks = def.CPUSustainTicks
	}
	if cfg.RAMSustainTicks <= 0 {
		cfg.RAMSustainTicks = def.RAMSustainTicks
	}
	if thresholds == nil {
		thresholds = NewThresholdStore(DefaultThresholds())
	}

	e := &AlertEngine{
		cfg:         cfg,
		thresholds:  thresholds,
		logger:      logger,
		now:         time.Now,
		alerts:      make([]models.Alert, 0, cfg.Capacity),
		subscribers: NewBroadcaster[models.Alert]("alerts", logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type pendingAlert struct {
	source   string
	message  string
	severity models.Severity
}

// Process updates the sustain streaks from one snapshot and fires whatever
// conditions it meets. It returns the alerts actually stored.
func (e *AlertEngine) Process(s models.Snapshot) []models.Alert {
	e.fireMu.Lock()
	defer e.fireMu.Unlock()

	t := e.thresholds.Get()
	var pending []pendingAlert

	e.mu.Lock()
	e.cpuStreak = step(e.cpuStreak, s.CPUPercent >= t.CPUPercent)
	if e.cpuStreak >= e.cfg.CPUSustainTicks {
		e.cpuStreak = 0
		pending = append(pending, pendingAlert{
			source:   models.SourceCPU,
			message:  fmt.Sprintf("CPU usage sustained above %.0f%% (now %.1f%%)", t.CPUPercent, s.CPUPercent),
			severity: models.SeverityCritical,
		})
	}

	ram := s.RAMPercent()
	e.ramStreak = step(e.ramStreak, ram >= t.RAMPercent)
	if e.ramStreak >= e.cfg.RAMSustainTicks {
		e.ramStreak = 0
		pending = append(pending, pendingAlert{
			source:   models.SourceRAM,
			message:  fmt.Sprintf("RAM usage sustained above %.0f%% (now %.1f%%)", t.RAMPercent, ram),
			severity: models.SeverityWarning,
		})
	}
	e.mu.Unlock()

	// Disk space and connectivity matter on the first bad sample.
	if p, ok := s.LowestFreePartition(); ok && p.FreeGB < t.MinFreeDiskGB {
		pending = append(pending, pendingAlert{
			source:   models.SourceDiskSpace,
			message:  fmt.Sprintf("Only %.1f GB free on %s", p.FreeGB, p.Path),
			severity: models.SeverityCritical,
		})
	}
	if s.NetworkSampled && s.ActiveAdapters == 0 {
		pending = append(pending, pendingAlert{
			source:   models.SourceNetwork,
			message:  "No active network adapters",
			severity: models.SeverityWarning,
		})
	}

	var fired []models.Alert
	for _, p := range pending {
		if a, ok := e.fire(p.source, p.message, p.severity); ok {
			fired = append(fired, a)
		}
	}
	return fired
}

// step moves a streak counter up while the condition holds and down, never
// below zero, while it does not.
func step(streak int, holds bool) int {
	if holds {
		return streak + 1
	}
	return max(0, streak-1)
}

// Fire stores and publishes an alert unless an alert with the same source
// and severity was created within the de-duplication window.
func (e *AlertEngine) Fire(source, message string, severity models.Severity) (models.Alert, bool) {
	e.fireMu.Lock()
	defer e.fireMu.Unlock()
	return e.fire(source, message, severity)
}

func (e *AlertEngine) fire(source, message string, severity models.Severity) (models.Alert, bool) {
	now := e.now()

	e.mu.Lock()
	if e.isDuplicate(source, severity, now) {
		e.mu.Unlock()
		e.logger.Debug("alert suppressed",
			zap.String("source", source),
			zap.String("severity", string(severity)))
		return models.Alert{}, false
	}

	alert := models.Alert{
		ID:           uuid.NewString(),
		Source:       source,
		Message:      message,
		Severity:     severity,
		SuggestedFix: SuggestedFix(source),
		CreatedAt:    now,
	}
	e.alerts = append(e.alerts, models.Alert{})
	copy(e.alerts[1:], e.alerts)
	e.alerts[0] = alert
	if len(e.alerts) > e.cfg.Capacity {
		e.alerts = e.alerts[:e.cfg.Capacity]
	}
	e.mu.Unlock()

	e.logger.Warn("alert fired",
		zap.String("id", alert.ID),
		zap.String("source", source),
		zap.String("severity", string(severity)),
		zap.String("message", message))

	e.subscribers.Publish(alert)
	return alert, true
}

// isDuplicate must be called with mu held.
func (e *AlertEngine) isDuplicate(source string, severity models.Severity, now time.Time) bool {
	for _, a := range e.alerts {
		if now.Sub(a.CreatedAt) >= e.cfg.DedupWindow {
			// newest first, so everything after this is older still
			return false
		}
		if a.Source == source && a.Severity == severity {
			return true
		}
	}
	return false
}

// RecentAlerts returns up to n alerts, newest first. n <= 0 returns all.
func (e *AlertEngine) RecentAlerts(n int) []models.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if n <= 0 || n > len(e.alerts) {
		n = len(e.alerts)
	}
	out := make([]models.Alert, n)
	copy(out, e.alerts[:n])
	return out
}

// Acknowledge marks an alert as seen.
func (e *AlertEngine) Acknowledge(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID == id {
			e.alerts[i].Acknowledged = true
			return nil
		}
	}
	return fmt.Errorf("acknowledge %s: %w", id, ErrAlertNotFound)
}

// ClearAlerts empties the alert list.
func (e *AlertEngine) ClearAlerts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = e.alerts[:0]
}

// Subscribe registers a callback for newly fired alerts.
func (e *AlertEngine) Subscribe(fn func(models.Alert)) (unsubscribe func()) {
	return e.subscribers.Subscribe(fn)
}
