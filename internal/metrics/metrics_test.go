package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nazar/internal/models"
)

func TestRegister_ToleratesDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveEvaluation(t *testing.T) {
	s := models.Snapshot{
		CPUPercent:          42,
		RAMTotalMB:          1000,
		RAMUsedMB:           250,
		DiskActivityPercent: 12.5,
		BytesSentPerSec:     1024,
		BytesRecvPerSec:     4096,
	}
	ObserveEvaluation(s, models.HealthReport{HealthScore: 90})

	assert.Equal(t, 42.0, testutil.ToFloat64(cpuPercent))
	assert.Equal(t, 25.0, testutil.ToFloat64(ramPercent))
	assert.Equal(t, 12.5, testutil.ToFloat64(diskActivityPercent))
	assert.Equal(t, 90.0, testutil.ToFloat64(healthScore))
	assert.Equal(t, 1024.0, testutil.ToFloat64(networkBytesPerSecond.WithLabelValues("up")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(networkBytesPerSecond.WithLabelValues("down")))
}

func TestObserveAlert(t *testing.T) {
	counter := alertsTotal.WithLabelValues(models.SourceRAM, string(models.SeverityWarning))
	before := testutil.ToFloat64(counter)

	ObserveAlert(models.Alert{Source: models.SourceRAM, Severity: models.SeverityWarning})
	ObserveAlert(models.Alert{Source: models.SourceRAM, Severity: models.SeverityWarning})

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestObserveCollection(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collectionSeconds))

	ObserveCollection(600 * time.Millisecond)
	ObserveCollection(-time.Second)

	expected := `
# HELP nazar_collection_seconds Time spent collecting one snapshot.
# TYPE nazar_collection_seconds histogram
nazar_collection_seconds_bucket{le="0.1"} 1
nazar_collection_seconds_bucket{le="0.25"} 1
nazar_collection_seconds_bucket{le="0.5"} 1
nazar_collection_seconds_bucket{le="0.75"} 2
nazar_collection_seconds_bucket{le="1"} 2
nazar_collection_seconds_bucket{le="1.5"} 2
nazar_collection_seconds_bucket{le="2"} 2
nazar_collection_seconds_bucket{le="5"} 2
nazar_collection_seconds_bucket{le="+Inf"} 2
nazar_collection_seconds_sum 0.6
nazar_collection_seconds_count 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "nazar_collection_seconds"))
}
