package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nazar/internal/models"
)

// Config captures every setting the nazar service reads at startup.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Collector  CollectorConfig   `yaml:"collector"`
	Thresholds models.Thresholds `yaml:"thresholds"`
	Alerts     AlertsConfig      `yaml:"alerts"`
	Logging    LoggingConfig     `yaml:"logging"`
	Store      StoreConfig       `yaml:"store"`
	Auth       AuthConfig        `yaml:"auth"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Mode            string        `yaml:"mode"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	AllowedIPs      []string      `yaml:"allowedIPs"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// CollectorConfig controls sampling.
type CollectorConfig struct {
	Interval        time.Duration `yaml:"interval"`
	HistorySize     int           `yaml:"historySize"`
	SampleWindow    time.Duration `yaml:"sampleWindow"`
	DiskPaths       []string      `yaml:"diskPaths"`
	CacheTTL        time.Duration `yaml:"cacheTTL"`
	ProcessInterval time.Duration `yaml:"processInterval"`
}

// AlertsConfig controls alert retention and sustain requirements.
type AlertsConfig struct {
	Capacity    int           `yaml:"capacity"`
	DedupWindow time.Duration `yaml:"dedupWindow"`
	CPUSustain  time.Duration `yaml:"cpuSustain"`
	RAMSustain  time.Duration `yaml:"ramSustain"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StoreConfig controls the SQLite alert log.
type StoreConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
}

// AuthConfig controls websocket token signing.
type AuthConfig struct {
	SecretKeyFile string        `yaml:"secretKeyFile"`
	TokenExpiry   time.Duration `yaml:"tokenExpiry"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NAZAR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         "localhost:8080",
			Mode:            "release",
			RateLimit:       100,
			RateBurst:       200,
			GracefulTimeout: 10 * time.Second,
		},
		Collector: CollectorConfig{
			Interval:        2 * time.Second,
			HistorySize:     600,
			SampleWindow:    500 * time.Millisecond,
			CacheTTL:        time.Second,
			ProcessInterval: 5 * time.Second,
		},
		Thresholds: models.Thresholds{
			CPUPercent:          85,
			RAMPercent:          85,
			DiskActivityPercent: 90,
			MinFreeDiskGB:       10,
		},
		Alerts: AlertsConfig{
			Capacity:    200,
			DedupWindow: 30 * time.Second,
			CPUSustain:  10 * time.Second,
			RAMSustain:  6 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Store: StoreConfig{
			Enabled:       true,
			Path:          "nazar.db",
			RetentionDays: 30,
		},
		Auth: AuthConfig{TokenExpiry: 90 * 24 * time.Hour},
	}
}

func (c *Config) validate() error {
	var errs []error
	percent := func(name string, v float64) {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("thresholds.%s must be within 0..100, got %v", name, v))
		}
	}
	percent("cpuPercent", c.Thresholds.CPUPercent)
	percent("ramPercent", c.Thresholds.RAMPercent)
	percent("diskActivityPercent", c.Thresholds.DiskActivityPercent)
	if c.Thresholds.MinFreeDiskGB < 0 {
		errs = append(errs, fmt.Errorf("thresholds.minFreeDiskGB must not be negative, got %v", c.Thresholds.MinFreeDiskGB))
	}

	if c.Collector.Interval < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("collector.interval must be at least 100ms, got %s", c.Collector.Interval))
	}
	if c.Collector.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("collector.historySize must be positive, got %d", c.Collector.HistorySize))
	}
	if c.Collector.SampleWindow < 0 || c.Collector.SampleWindow >= c.Collector.Interval {
		errs = append(errs, fmt.Errorf("collector.sampleWindow must be within 0..interval, got %s", c.Collector.SampleWindow))
	}

	if c.Alerts.Capacity < 1 {
		errs = append(errs, fmt.Errorf("alerts.capacity must be positive, got %d", c.Alerts.Capacity))
	}
	if c.Alerts.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("alerts.dedupWindow must not be negative, got %s", c.Alerts.DedupWindow))
	}

	if c.Store.Enabled && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required when the store is enabled"))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides applies NAZAR_* variables over cfg. Values that do not
// parse are reported rather than skipped.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	envDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	envFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}

	if v := os.Getenv("NAZAR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("NAZAR_SERVER_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("NAZAR_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("NAZAR_ALLOWED_IPS"); v != "" {
		cfg.Server.AllowedIPs = splitList(v)
	}
	envDuration("NAZAR_INTERVAL", &cfg.Collector.Interval)
	envInt("NAZAR_HISTORY_SIZE", &cfg.Collector.HistorySize)
	if v := os.Getenv("NAZAR_DISK_PATHS"); v != "" {
		cfg.Collector.DiskPaths = splitList(v)
	}
	envFloat("NAZAR_CPU_THRESHOLD", &cfg.Thresholds.CPUPercent)
	envFloat("NAZAR_RAM_THRESHOLD", &cfg.Thresholds.RAMPercent)
	envFloat("NAZAR_DISK_ACTIVITY_THRESHOLD", &cfg.Thresholds.DiskActivityPercent)
	envFloat("NAZAR_MIN_FREE_DISK_GB", &cfg.Thresholds.MinFreeDiskGB)
	if v := os.Getenv("NAZAR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NAZAR_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("NAZAR_STORE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("NAZAR_STORE_ENABLED: %w", err))
		} else {
			cfg.Store.Enabled = enabled
		}
	}
	if v := os.Getenv("NAZAR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("NAZAR_SECRET_KEY_FILE"); v != "" {
		cfg.Auth.SecretKeyFile = v
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
