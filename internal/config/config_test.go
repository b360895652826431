package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nazar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NAZAR_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 2*time.Second, cfg.Collector.Interval)
	assert.Equal(t, 600, cfg.Collector.HistorySize)
	assert.Equal(t, 85.0, cfg.Thresholds.CPUPercent)
	assert.Equal(t, 85.0, cfg.Thresholds.RAMPercent)
	assert.Equal(t, 90.0, cfg.Thresholds.DiskActivityPercent)
	assert.Equal(t, 10.0, cfg.Thresholds.MinFreeDiskGB)
	assert.Equal(t, 200, cfg.Alerts.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Alerts.DedupWindow)
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 0.0.0.0:9000
  allowedIPs: ["127.0.0.1", "10.0.0.0/8"]
collector:
  interval: 1s
  diskPaths: ["/", "/data"]
thresholds:
  cpuPercent: 70
  minFreeDiskGB: 25
alerts:
  dedupWindow: 1m
logging:
  level: debug
  json: true
store:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.Server.AllowedIPs)
	assert.Equal(t, time.Second, cfg.Collector.Interval)
	assert.Equal(t, []string{"/", "/data"}, cfg.Collector.DiskPaths)
	assert.Equal(t, 70.0, cfg.Thresholds.CPUPercent)
	assert.Equal(t, 25.0, cfg.Thresholds.MinFreeDiskGB)
	assert.Equal(t, time.Minute, cfg.Alerts.DedupWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.False(t, cfg.Store.Enabled)

	// untouched keys keep their defaults
	assert.Equal(t, 85.0, cfg.Thresholds.RAMPercent)
	assert.Equal(t, 600, cfg.Collector.HistorySize)
	assert.Equal(t, 10*time.Second, cfg.Alerts.CPUSustain)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  address: localhost:7000\n")
	t.Setenv("NAZAR_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:7000", cfg.Server.Address)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "thresholds:\n  cpuPercent: 70\n")
	t.Setenv("NAZAR_CPU_THRESHOLD", "60")
	t.Setenv("NAZAR_MIN_FREE_DISK_GB", "5.5")
	t.Setenv("NAZAR_INTERVAL", "5s")
	t.Setenv("NAZAR_ALLOWED_ORIGINS", "http://a.local, http://b.local,")
	t.Setenv("NAZAR_LOG_FORMAT", "json")
	t.Setenv("NAZAR_STORE_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.Thresholds.CPUPercent)
	assert.Equal(t, 5.5, cfg.Thresholds.MinFreeDiskGB)
	assert.Equal(t, 5*time.Second, cfg.Collector.Interval)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Logging.JSON)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoad_InvalidEnvValuesAreReported(t *testing.T) {
	t.Setenv("NAZAR_CONFIG", "")
	t.Setenv("NAZAR_CPU_THRESHOLD", "lots")
	t.Setenv("NAZAR_HISTORY_SIZE", "many")
	t.Setenv("NAZAR_INTERVAL", "abc")
	t.Setenv("NAZAR_STORE_ENABLED", "maybe")

	cfg, err := Load("")
	require.Error(t, err)
	assert.Nil(t, cfg)
	for _, name := range []string{"NAZAR_CPU_THRESHOLD", "NAZAR_HISTORY_SIZE", "NAZAR_INTERVAL", "NAZAR_STORE_ENABLED"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationCollectsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  cpuPercent: 150
  minFreeDiskGB: -1
collector:
  interval: 10ms
alerts:
  capacity: 0
`)

	_, err := Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "cpuPercent")
	assert.Contains(t, msg, "minFreeDiskGB")
	assert.Contains(t, msg, "collector.interval")
	assert.Contains(t, msg, "alerts.capacity")
}

func TestValidate_SampleWindowMustFitInterval(t *testing.T) {
	cfg := Default()
	cfg.Collector.SampleWindow = cfg.Collector.Interval
	assert.Error(t, cfg.validate())

	cfg.Collector.SampleWindow = 0
	assert.NoError(t, cfg.validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,b,, "))
	assert.Nil(t, splitList(""))
}
