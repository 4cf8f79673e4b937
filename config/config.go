// Package config loads, validates, and defaults the cache configuration
// from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/BillPolly/adaptcache/errors"
	"github.com/BillPolly/adaptcache/policy"
)

// Configuration represents the complete cache configuration
type Configuration struct {
	Cache       CacheConfig       `yaml:"cache"`
	Compression CompressionConfig `yaml:"compression"`
	Prefetch    PrefetchConfig    `yaml:"prefetch"`
	Pattern     PatternConfig     `yaml:"pattern"`
	Thermal     ThermalConfig     `yaml:"thermal"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
}

// CacheConfig represents the main tier settings
type CacheConfig struct {
	Name             string        `yaml:"name"`
	MaxEntries       int           `yaml:"max_entries"`
	DefaultTTL       time.Duration `yaml:"default_ttl"`
	EvictionPolicy   string        `yaml:"eviction_policy"`
	EvictTarget      float64       `yaml:"evict_target"`
	OptimizeInterval time.Duration `yaml:"optimize_interval"`
}

// CompressionConfig represents compression settings
type CompressionConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Algorithm  string  `yaml:"algorithm"`
	MinSize    int     `yaml:"min_size"`
	MaxSize    int     `yaml:"max_size"`
	MinSavings float64 `yaml:"min_savings"`
	Level      int     `yaml:"level"`
}

// PrefetchConfig represents prediction and prefetch settings
type PrefetchConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Threshold       float64       `yaml:"threshold"`
	MaxPredictions  int           `yaml:"max_predictions"`
	TTL             time.Duration `yaml:"ttl"`
	QueueSize       int           `yaml:"queue_size"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
	ProducerTimeout time.Duration `yaml:"producer_timeout"`
}

// PatternConfig represents access tracking settings
type PatternConfig struct {
	HistorySize       int `yaml:"history_size"`
	MaxKeysPerContext int `yaml:"max_keys_per_context"`
}

// ThermalConfig represents load shedding settings
type ThermalConfig struct {
	InitialTemperature float64 `yaml:"initial_temperature"`
	HeatingRate        float64 `yaml:"heating_rate"`
	CoolingRate        float64 `yaml:"cooling_rate"`
	ThrottleThreshold  float64 `yaml:"throttle_threshold"`
	MaxTemperature     float64 `yaml:"max_temperature"`
}

// MonitoringConfig represents metrics and logging settings
type MonitoringConfig struct {
	MetricsExporter string `yaml:"metrics_exporter"`
	LogLevel        string `yaml:"log_level"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Cache: CacheConfig{
			Name:             "adaptcache",
			MaxEntries:       1000,
			DefaultTTL:       5 * time.Minute,
			EvictionPolicy:   "scored",
			EvictTarget:      0.9,
			OptimizeInterval: time.Minute,
		},
		Compression: CompressionConfig{
			Enabled:    true,
			Algorithm:  "dictionary",
			MinSize:    1024,
			MaxSize:    10 << 20,
			MinSavings: 0.2,
			Level:      6,
		},
		Prefetch: PrefetchConfig{
			Enabled:         true,
			Threshold:       0.7,
			MaxPredictions:  5,
			TTL:             time.Minute,
			QueueSize:       64,
			RatePerSecond:   50,
			Burst:           10,
			ProducerTimeout: 5 * time.Second,
		},
		Pattern: PatternConfig{
			HistorySize:       100,
			MaxKeysPerContext: 20,
		},
		Thermal: ThermalConfig{
			InitialTemperature: 20,
			HeatingRate:        1.05,
			CoolingRate:        0.95,
			ThrottleThreshold:  80,
			MaxTemperature:     100,
		},
		Monitoring: MonitoringConfig{
			MetricsExporter: "standard",
			LogLevel:        "info",
		},
	}
}

// Load builds a configuration from defaults, an optional YAML file, and
// environment overrides, validating the result. An empty path skips the
// file step.
func Load(path string) (*Configuration, error) {
	cfg := NewDefault()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv applies environment variable overrides. Unparseable values
// are ignored in favor of the current setting.
func (c *Configuration) LoadFromEnv() {
	if val := os.Getenv("ADAPTCACHE_NAME"); val != "" {
		c.Cache.Name = val
	}
	if val := os.Getenv("ADAPTCACHE_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.MaxEntries = n
		}
	}
	if val := os.Getenv("ADAPTCACHE_DEFAULT_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.DefaultTTL = d
		}
	}
	if val := os.Getenv("ADAPTCACHE_EVICTION_POLICY"); val != "" {
		c.Cache.EvictionPolicy = val
	}
	if val := os.Getenv("ADAPTCACHE_COMPRESSION_ENABLED"); val != "" {
		c.Compression.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("ADAPTCACHE_COMPRESSION_ALGORITHM"); val != "" {
		c.Compression.Algorithm = val
	}
	if val := os.Getenv("ADAPTCACHE_PREFETCH_ENABLED"); val != "" {
		c.Prefetch.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("ADAPTCACHE_PREFETCH_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Prefetch.Threshold = f
		}
	}
	if val := os.Getenv("ADAPTCACHE_METRICS_EXPORTER"); val != "" {
		c.Monitoring.MetricsExporter = val
	}
	if val := os.Getenv("ADAPTCACHE_LOG_LEVEL"); val != "" {
		c.Monitoring.LogLevel = val
	}
}

// SaveToFile writes the configuration as YAML
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("%w: max_entries must be greater than 0", errors.ErrInvalidConfig)
	}
	if c.Cache.DefaultTTL < 0 {
		return fmt.Errorf("%w: default_ttl cannot be negative", errors.ErrInvalidConfig)
	}
	if _, ok := policy.ByName[string](c.Cache.EvictionPolicy); !ok {
		return fmt.Errorf("%w: unknown eviction_policy %q", errors.ErrInvalidConfig, c.Cache.EvictionPolicy)
	}
	if c.Cache.EvictTarget <= 0 || c.Cache.EvictTarget > 1 {
		return fmt.Errorf("%w: evict_target must be in (0, 1]", errors.ErrInvalidConfig)
	}
	if c.Cache.OptimizeInterval <= 0 {
		return fmt.Errorf("%w: optimize_interval must be positive", errors.ErrInvalidConfig)
	}

	switch c.Compression.Algorithm {
	case "dictionary", "gzip":
	default:
		return fmt.Errorf("%w: unknown compression algorithm %q", errors.ErrInvalidConfig, c.Compression.Algorithm)
	}
	if c.Compression.MinSize < 0 || c.Compression.MaxSize < 0 {
		return fmt.Errorf("%w: compression size limits cannot be negative", errors.ErrInvalidConfig)
	}
	if c.Compression.MinSavings < 0 || c.Compression.MinSavings >= 1 {
		return fmt.Errorf("%w: min_savings must be in [0, 1)", errors.ErrInvalidConfig)
	}

	if c.Prefetch.Threshold < 0 || c.Prefetch.Threshold > 1 {
		return fmt.Errorf("%w: prefetch threshold must be in [0, 1]", errors.ErrInvalidConfig)
	}
	if c.Prefetch.MaxPredictions <= 0 {
		return fmt.Errorf("%w: max_predictions must be greater than 0", errors.ErrInvalidConfig)
	}
	if c.Prefetch.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be greater than 0", errors.ErrInvalidConfig)
	}
	if c.Prefetch.RatePerSecond <= 0 || c.Prefetch.Burst <= 0 {
		return fmt.Errorf("%w: prefetch rate and burst must be positive", errors.ErrInvalidConfig)
	}
	if c.Prefetch.ProducerTimeout <= 0 {
		return fmt.Errorf("%w: producer_timeout must be positive", errors.ErrInvalidConfig)
	}

	if c.Pattern.HistorySize <= 0 {
		return fmt.Errorf("%w: history_size must be greater than 0", errors.ErrInvalidConfig)
	}
	if c.Pattern.MaxKeysPerContext <= 0 {
		return fmt.Errorf("%w: max_keys_per_context must be greater than 0", errors.ErrInvalidConfig)
	}

	if c.Thermal.InitialTemperature <= 0 {
		return fmt.Errorf("%w: initial_temperature must be positive", errors.ErrInvalidConfig)
	}
	if c.Thermal.HeatingRate <= 1 {
		return fmt.Errorf("%w: heating_rate must be greater than 1", errors.ErrInvalidConfig)
	}
	if c.Thermal.CoolingRate <= 0 || c.Thermal.CoolingRate >= 1 {
		return fmt.Errorf("%w: cooling_rate must be in (0, 1)", errors.ErrInvalidConfig)
	}
	if c.Thermal.ThrottleThreshold <= 0 || c.Thermal.ThrottleThreshold >= c.Thermal.MaxTemperature {
		return fmt.Errorf("%w: throttle_threshold must be between 0 and max_temperature", errors.ErrInvalidConfig)
	}

	switch c.Monitoring.MetricsExporter {
	case "standard", "prometheus":
	default:
		return fmt.Errorf("%w: unknown metrics_exporter %q", errors.ErrInvalidConfig, c.Monitoring.MetricsExporter)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.ToLower(c.Monitoring.LogLevel) == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("%w: invalid log_level %q (must be one of: %s)",
			errors.ErrInvalidConfig, c.Monitoring.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
