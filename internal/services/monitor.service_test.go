package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nazar/internal/models"
)

func newTestMonitor(src MetricsSource, clock *fakeClock) *Monitor {
	cfg := DefaultMonitorConfig()
	cfg.Collector.SampleWindow = time.Millisecond
	return NewMonitor(src, DefaultThresholds(), cfg, nil,
		WithCollectorOptions(WithCollectorClock(clock.Now)),
		WithAlertOptions(WithAlertClock(clock.Now)),
	)
}

// runTicks drives the collector synchronously, advancing the clock by the
// monitor interval between ticks.
func runTicks(m *Monitor, clock *fakeClock, n int) {
	for i := 0; i < n; i++ {
		m.collector.tick(context.Background())
		clock.Advance(m.Interval())
	}
}

func TestMonitor_SustainedCPUEndToEnd(t *testing.T) {
	src := newFakeSource()
	src.cpu = 90
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	var reports []models.HealthReport
	m.SubscribeEvaluations(func(e Evaluation) { reports = append(reports, e.Report) })
	var fired []models.Alert
	m.SubscribeAlerts(func(a models.Alert) { fired = append(fired, a) })

	runTicks(m, clock, 5)

	require.Len(t, reports, 5)
	for i, r := range reports {
		assert.LessOrEqual(t, r.HealthScore, 75, "tick %d", i+1)
		require.NotEmpty(t, r.Issues, "tick %d", i+1)
		assert.Equal(t, models.SourceCPU, r.Issues[0].Source)
		assert.Equal(t, models.SeverityCritical, r.Issues[0].Severity)
	}

	require.Len(t, fired, 1)
	assert.Equal(t, models.SourceCPU, fired[0].Source)
	assert.Equal(t, models.SeverityCritical, fired[0].Severity)
	assert.Equal(t, fired, m.GetRecentAlerts(0))

	// five more ticks inside the dedup window do not repeat the alert
	runTicks(m, clock, 5)
	assert.Len(t, m.GetRecentAlerts(0), 1)
}

func TestMonitor_LatestAndHistory(t *testing.T) {
	src := newFakeSource()
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	_, ok := m.Latest()
	assert.False(t, ok)

	runTicks(m, clock, 3)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, models.StatusHealthy, latest.Report.Status)
	assert.Equal(t, 100, latest.Report.HealthScore)
	assert.Len(t, m.GetRecentSnapshots(0), 3)
	assert.Len(t, m.GetRecentSnapshots(2), 2)
}

func TestMonitor_ThresholdUpdateAffectsEvaluation(t *testing.T) {
	src := newFakeSource()
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	s := healthySnapshot()
	s.CPUPercent = 60
	assert.Empty(t, m.Evaluate(s).Issues)

	m.Thresholds().SetCPUPercent(50)
	report := m.Evaluate(s)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, models.SeverityCritical, report.Issues[0].Severity)
}

func TestMonitor_Series(t *testing.T) {
	src := newFakeSource()
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	for _, v := range []float64{10, 20, 30} {
		src.setCPU(v)
		runTicks(m, clock, 1)
	}

	series, err := m.Series(MetricCPU, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, series)

	ram, err := m.Series(MetricRAM, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{25, 25}, ram)

	free, err := m.Series(MetricDiskFree, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{300}, free)

	_, err = m.Series("gpu", 0)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMonitor_Forecast(t *testing.T) {
	src := newFakeSource()
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	_, err := m.Forecast(MetricCPU, 0, 0)
	assert.ErrorIs(t, err, ErrNoSamples)

	for _, v := range []float64{10, 20, 30, 40, 50, 60} {
		src.setCPU(v)
		runTicks(m, clock, 1)
	}

	f, err := m.Forecast(MetricCPU, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, MetricCPU, f.Metric)
	assert.Equal(t, 6, f.Samples)
	assert.Equal(t, models.TrendRising, f.Trend)
	assert.Equal(t, 85.0, f.Limit)
	assert.True(t, f.WillCrossLimit)
	// 25 points to go at 10 per 2s tick
	assert.InDelta(t, 5, f.SecondsToLimit, 1e-6)

	procs, err := m.Forecast(MetricProcesses, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 250.0, procs.Predicted)
	assert.Equal(t, models.TrendStable, procs.Trend)
	assert.False(t, procs.WillCrossLimit)
	assert.Zero(t, procs.Limit)

	_, err = m.Forecast("gpu", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMonitor_TrendOf(t *testing.T) {
	src := newFakeSource()
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	for _, v := range []float64{80, 70, 60, 50, 40, 30} {
		src.setCPU(v)
		runTicks(m, clock, 1)
	}

	trend, err := m.TrendOf(MetricCPU, 2, DefaultTrendDeadband)
	require.NoError(t, err)
	assert.Equal(t, models.TrendFalling, trend)
}

func TestMonitor_RefreshDoesNotRecord(t *testing.T) {
	src := newFakeSource()
	src.cpu = 95
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	eval := m.Refresh(context.Background())
	assert.Equal(t, 95.0, eval.Snapshot.CPUPercent)
	assert.Equal(t, 75, eval.Report.HealthScore)
	assert.Zero(t, m.Collector().Len())
	assert.Empty(t, m.GetRecentAlerts(0))
}

func TestMonitor_ClearAndAcknowledge(t *testing.T) {
	src := newFakeSource()
	src.adapters = 0
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	runTicks(m, clock, 1)
	alerts := m.GetRecentAlerts(0)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SourceNetwork, alerts[0].Source)

	require.NoError(t, m.Acknowledge(alerts[0].ID))
	assert.True(t, m.GetRecentAlerts(1)[0].Acknowledged)

	m.ClearAlerts()
	assert.Empty(t, m.GetRecentAlerts(0))
}

func TestMonitor_PredictHasNoFloor(t *testing.T) {
	m := newTestMonitor(newFakeSource(), newFakeClock())

	got, err := m.Predict([]float64{-5})
	require.NoError(t, err)
	assert.Equal(t, -5.0, got)
}

func TestMonitor_StartStop(t *testing.T) {
	src := newFakeSource()
	cfg := DefaultMonitorConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Collector.SampleWindow = time.Millisecond
	m := NewMonitor(src, DefaultThresholds(), cfg, nil)

	m.Start()
	assert.Eventually(t, func() bool {
		_, ok := m.Latest()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	m.Stop()
	assert.False(t, m.Collector().Running())
}

func TestMonitor_FailedNetworkReadRaisesNoAlert(t *testing.T) {
	src := newFakeSource()
	src.failNet = true
	clock := newFakeClock()
	m := newTestMonitor(src, clock)

	runTicks(m, clock, 3)
	assert.Empty(t, m.GetRecentAlerts(0))

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.False(t, latest.Snapshot.NetworkSampled)
}

func TestMonitor_LatestIsACopy(t *testing.T) {
	src := newFakeSource()
	src.cpu = 95
	clock := newFakeClock()
	m := newTestMonitor(src, clock)
	runTicks(m, clock, 1)

	first, ok := m.Latest()
	require.True(t, ok)
	require.NotEmpty(t, first.Report.Issues)
	first.Snapshot.Partitions[0].FreeGB = -1
	first.Report.Issues[0].Description = "changed"

	again, _ := m.Latest()
	assert.Equal(t, 300.0, again.Snapshot.Partitions[0].FreeGB)
	assert.NotEqual(t, "changed", again.Report.Issues[0].Description)
}

func TestMonitor_SubscriberCanStopAsynchronously(t *testing.T) {
	cfg := DefaultMonitorConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Collector.SampleWindow = time.Millisecond
	m := NewMonitor(newFakeSource(), DefaultThresholds(), cfg, nil)

	stopped := make(chan struct{})
	var once sync.Once
	m.SubscribeEvaluations(func(Evaluation) {
		once.Do(func() {
			go func() {
				m.Stop()
				close(stopped)
			}()
		})
	})

	m.Start()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not stop")
	}
	assert.False(t, m.Collector().Running())
}
