// Package metrics exports pipeline state as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nazar/internal/models"
)

const namespace = "nazar"

var (
	cpuPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cpu_percent",
		Help:      "CPU utilisation of the latest snapshot.",
	})

	ramPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ram_percent",
		Help:      "RAM utilisation of the latest snapshot.",
	})

	diskActivityPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "disk_activity_percent",
		Help:      "Disk busy time of the latest snapshot.",
	})

	healthScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_score",
		Help:      "Health score of the latest snapshot, 0 to 100.",
	})

	networkBytesPerSecond = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_bytes_per_second",
			Help:      "Network throughput of the latest snapshot.",
		},
		[]string{"direction"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts fired, partitioned by source and severity.",
		},
		[]string{"source", "severity"},
	)

	collectionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_seconds",
			Help:      "Time spent collecting one snapshot.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 5},
		},
	)
)

// Register attaches nazar collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cpuPercent,
		ramPercent,
		diskActivityPercent,
		healthScore,
		networkBytesPerSecond,
		alertsTotal,
		collectionSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation updates the gauges from one evaluated snapshot.
func ObserveEvaluation(s models.Snapshot, r models.HealthReport) {
	cpuPercent.Set(s.CPUPercent)
	ramPercent.Set(s.RAMPercent())
	diskActivityPercent.Set(s.DiskActivityPercent)
	healthScore.Set(float64(r.HealthScore))
	networkBytesPerSecond.WithLabelValues("up").Set(s.BytesSentPerSec)
	networkBytesPerSecond.WithLabelValues("down").Set(s.BytesRecvPerSec)
}

// ObserveAlert counts a fired alert.
func ObserveAlert(a models.Alert) {
	alertsTotal.WithLabelValues(a.Source, string(a.Severity)).Inc()
}

// ObserveCollection records how long a collection cycle took.
func ObserveCollection(d time.Duration) {
	if d < 0 {
		d = 0
	}
	collectionSeconds.Observe(d.Seconds())
}
