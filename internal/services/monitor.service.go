package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nazar/internal/models"
)

// ErrUnknownMetric is returned for a series name Monitor does not know
var ErrUnknownMetric = errors.New("unknown metric")

// Series names accepted by Monitor.Series
const (
	MetricCPU          = "cpu"
	MetricRAM          = "ram"
	MetricDiskActivity = "disk_activity"
	MetricDiskFree     = "disk_free"
	MetricUpload       = "upload"
	MetricDownload     = "download"
	MetricProcesses    = "processes"
)

var seriesExtractors = map[string]func(models.Snapshot) float64{
	MetricCPU:          func(s models.Snapshot) float64 { return s.CPUPercent },
	MetricRAM:          func(s models.Snapshot) float64 { return s.RAMPercent() },
	MetricDiskActivity: func(s models.Snapshot) float64 { return s.DiskActivityPercent },
	MetricDiskFree: func(s models.Snapshot) float64 {
		p, _ := s.LowestFreePartition()
		return p.FreeGB
	},
	MetricUpload:    func(s models.Snapshot) float64 { return s.UploadMbps() },
	MetricDownload:  func(s models.Snapshot) float64 { return s.DownloadMbps() },
	MetricProcesses: func(s models.Snapshot) float64 { return float64(s.ProcessCount) },
}

// Default moving-average trend parameters
const (
	DefaultTrendWindow   = 10
	DefaultTrendDeadband = 2.0
)

// Evaluation pairs a snapshot with the health report computed from it.
type Evaluation struct {
	Snapshot models.Snapshot     `json:"snapshot"`
	Report   models.HealthReport `json:"report"`
}

func (e Evaluation) clone() Evaluation {
	return Evaluation{Snapshot: e.Snapshot.Clone(), Report: e.Report.Clone()}
}

// MonitorConfig wires the pipeline components together.
type MonitorConfig struct {
	Interval  time.Duration
	Collector CollectorConfig
	Alerts    AlertConfig
	CacheTTL  time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:  DefaultInterval,
		Collector: DefaultCollectorConfig(),
		Alerts:    DefaultAlertConfig(),
		CacheTTL:  DefaultCacheTTL,
	}
}

// MonitorOption customises the components a Monitor builds
type MonitorOption func(*monitorOptions)

type monitorOptions struct {
	collector []CollectorOption
	alerts    []AlertOption
}

func WithCollectorOptions(opts ...CollectorOption) MonitorOption {
	return func(o *monitorOptions) { o.collector = append(o.collector, opts...) }
}

func WithAlertOptions(opts ...AlertOption) MonitorOption {
	return func(o *monitorOptions) { o.alerts = append(o.alerts, opts...) }
}

// Monitor runs the sampling pipeline: every collected snapshot is evaluated
// for health and fed to the alert engine on the collector's goroutine.
type Monitor struct {
	interval   time.Duration
	thresholds *ThresholdStore
	collector  *Collector
	alerts     *AlertEngine
	cache      *SnapshotCache
	logger     *zap.Logger

	mu     sync.RWMutex
	latest *Evaluation

	evaluations *Broadcaster[Evaluation]
}

func NewMonitor(source MetricsSource, thresholds models.Thresholds, cfg MonitorConfig, logger *zap.Logger, opts ...MonitorOption) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	var o monitorOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := NewThresholdStore(thresholds)
	m := &Monitor{
		interval:    cfg.Interval,
		thresholds:  store,
		collector:   NewCollector(source, cfg.Collector, logger.Named("collector"), o.collector...),
		alerts:      NewAlertEngine(cfg.Alerts, store, logger.Named("alerts"), o.alerts...),
		logger:      logger,
		evaluations: NewBroadcaster[Evaluation]("evaluations", logger),
	}
	m.cache = NewSnapshotCache(m.collector.CollectOnce, cfg.CacheTTL)
	m.collector.Subscribe(m.process)
	return m
}

func (m *Monitor) process(s models.Snapshot) {
	eval := Evaluation{Snapshot: s, Report: m.Evaluate(s)}

	held := eval.clone()
	m.mu.Lock()
	m.latest = &held
	m.mu.Unlock()

	if eval.Report.Status != models.StatusHealthy {
		m.logger.Debug("health degraded",
			zap.Int("score", eval.Report.HealthScore),
			zap.String("status", string(eval.Report.Status)),
			zap.Int("issues", len(eval.Report.Issues)))
	}

	m.alerts.Process(s)
	m.evaluations.Publish(eval)
}

// Start begins periodic collection
func (m *Monitor) Start() {
	m.collector.Start(m.interval)
}

// Stop halts collection; it returns after any in-flight tick completes.
// It deadlocks when called synchronously from a subscriber.
func (m *Monitor) Stop() {
	m.collector.Stop()
}

func (m *Monitor) Interval() time.Duration { return m.interval }

func (m *Monitor) Thresholds() *ThresholdStore { return m.thresholds }

func (m *Monitor) Collector() *Collector { return m.collector }

func (m *Monitor) Alerts() *AlertEngine { return m.alerts }

// GetRecentSnapshots returns up to n snapshots, oldest first
func (m *Monitor) GetRecentSnapshots(n int) []models.Snapshot {
	return m.collector.GetRecent(n)
}

// GetRecentAlerts returns up to n alerts, newest first
func (m *Monitor) GetRecentAlerts(n int) []models.Alert {
	return m.alerts.RecentAlerts(n)
}

// Evaluate scores a snapshot against the current thresholds
func (m *Monitor) Evaluate(s models.Snapshot) models.HealthReport {
	return Evaluate(s, m.thresholds.Get())
}

// Predict forecasts the next value of an arbitrary series with no floor
func (m *Monitor) Predict(history []float64) (float64, error) {
	return Predict(history, 0)
}

func (m *Monitor) ClearAlerts() {
	m.alerts.ClearAlerts()
}

func (m *Monitor) Acknowledge(id string) error {
	return m.alerts.Acknowledge(id)
}

// Latest returns the most recent evaluated tick
func (m *Monitor) Latest() (Evaluation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return Evaluation{}, false
	}
	return m.latest.clone(), true
}

// Refresh returns a freshly collected, evaluated snapshot without recording
// it in the history. Calls within the cache TTL share one collection.
func (m *Monitor) Refresh(ctx context.Context) Evaluation {
	s := m.cache.Get(ctx)
	return Evaluation{Snapshot: s, Report: m.Evaluate(s)}
}

// SubscribeEvaluations registers fn for every evaluated tick. fn runs on
// the collection goroutine: calling Stop from fn deadlocks, use go m.Stop().
func (m *Monitor) SubscribeEvaluations(fn func(Evaluation)) (unsubscribe func()) {
	return m.evaluations.Subscribe(fn)
}

// SubscribeSnapshots registers fn for every collected snapshot. fn runs on
// the collection goroutine: calling Stop from fn deadlocks, use go m.Stop().
func (m *Monitor) SubscribeSnapshots(fn func(models.Snapshot)) (unsubscribe func()) {
	return m.collector.Subscribe(fn)
}

// SubscribeAlerts registers fn for every fired alert. Alerts raised by a
// tick are delivered on the collection goroutine, so fn must not call Stop
// synchronously.
func (m *Monitor) SubscribeAlerts(fn func(models.Alert)) (unsubscribe func()) {
	return m.alerts.Subscribe(fn)
}

// Series extracts one metric from the last count snapshots
func (m *Monitor) Series(metric string, count int) ([]float64, error) {
	extract, ok := seriesExtractors[metric]
	if !ok {
		return nil, fmt.Errorf("%q: %w", metric, ErrUnknownMetric)
	}
	snaps := m.collector.GetRecent(count)
	out := make([]float64, len(snaps))
	for i, s := range snaps {
		out[i] = extract(s)
	}
	return out, nil
}

// limitFor returns the alerting threshold a series is compared against, if any.
func (m *Monitor) limitFor(metric string) (float64, bool) {
	t := m.thresholds.Get()
	switch metric {
	case MetricCPU:
		return t.CPUPercent, true
	case MetricRAM:
		return t.RAMPercent, true
	case MetricDiskActivity:
		return t.DiskActivityPercent, true
	}
	return 0, false
}

// Forecast predicts the next value of a history series, labels its trend
// and, for thresholded metrics, estimates time until the threshold is hit.
func (m *Monitor) Forecast(metric string, count int, floor float64) (models.Forecast, error) {
	series, err := m.Series(metric, count)
	if err != nil {
		return models.Forecast{}, err
	}
	predicted, err := Predict(series, floor)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("forecast %s: %w", metric, err)
	}

	f := models.Forecast{
		Metric:    metric,
		Samples:   len(series),
		Predicted: predicted,
		Trend:     Trend(series, DefaultTrendWindow, DefaultTrendDeadband),
	}
	if limit, ok := m.limitFor(metric); ok {
		f.Limit = limit
		if d, ok := TimeToThreshold(series, limit, m.interval); ok {
			f.WillCrossLimit = true
			f.SecondsToLimit = d.Seconds()
		}
	}
	return f, nil
}

// TrendOf labels the moving-average direction of a history series
func (m *Monitor) TrendOf(metric string, window int, deadband float64) (models.TrendDirection, error) {
	series, err := m.Series(metric, 0)
	if err != nil {
		return "", err
	}
	return Trend(series, window, deadband), nil
}
