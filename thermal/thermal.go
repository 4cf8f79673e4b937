// Package thermal implements synthetic load-based throttling. A governor
// tracks a temperature that rises with every cache access and falls during
// maintenance cycles; while the temperature sits above the throttle
// threshold, speculative work (prefetching) is shed entirely.
package thermal

import (
	"sync"

	"github.com/BillPolly/adaptcache/errors"
)

// Config represents configuration for the thermal governor
type Config struct {
	// InitialTemperature is the baseline the governor starts at. It must
	// be positive: heating is multiplicative, so zero would never warm up.
	InitialTemperature float64

	// HeatingRate is the factor applied per access (> 1)
	HeatingRate float64

	// CoolingRate is the factor applied per cooling cycle (< 1)
	CoolingRate float64

	// ThrottleThreshold is the temperature above which throttling engages
	ThrottleThreshold float64

	// MaxTemperature caps the temperature scale
	MaxTemperature float64
}

// DefaultConfig returns the default thermal configuration
func DefaultConfig() Config {
	return Config{
		InitialTemperature: 20,
		HeatingRate:        1.05,
		CoolingRate:        0.95,
		ThrottleThreshold:  80,
		MaxTemperature:     100,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.InitialTemperature <= 0 || c.InitialTemperature > c.MaxTemperature {
		return errors.WrapError("Validate", nil, errors.ErrInvalidConfig)
	}
	if c.HeatingRate <= 1 {
		return errors.WrapError("Validate", nil, errors.ErrInvalidConfig)
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return errors.WrapError("Validate", nil, errors.ErrInvalidConfig)
	}
	if c.ThrottleThreshold <= 0 || c.ThrottleThreshold > c.MaxTemperature {
		return errors.WrapError("Validate", nil, errors.ErrInvalidConfig)
	}
	return nil
}

// State is a read-only view of the governor for analytics
type State struct {
	Temperature float64 `json:"temperature"`
	Throttling  bool    `json:"throttling"`
}

// Governor tracks the synthetic temperature for one cache instance
type Governor struct {
	mu             sync.RWMutex
	cfg            Config
	temperature    float64
	throttleEvents int64
}

// NewGovernor creates a governor at the configured initial temperature
func NewGovernor(cfg Config) *Governor {
	return &Governor{
		cfg:         cfg,
		temperature: cfg.InitialTemperature,
	}
}

// Heat applies one access worth of heating
func (g *Governor) Heat() {
	g.mu.Lock()
	defer g.mu.Unlock()

	wasThrottling := g.temperature > g.cfg.ThrottleThreshold
	g.temperature *= g.cfg.HeatingRate
	if g.temperature > g.cfg.MaxTemperature {
		g.temperature = g.cfg.MaxTemperature
	}
	if !wasThrottling && g.temperature > g.cfg.ThrottleThreshold {
		g.throttleEvents++
	}
}

// Cool applies one maintenance cycle worth of cooling
func (g *Governor) Cool() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.temperature *= g.cfg.CoolingRate
	if g.temperature < 0 {
		g.temperature = 0
	}
}

// Throttling reports whether speculative work should be shed
func (g *Governor) Throttling() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.temperature > g.cfg.ThrottleThreshold
}

// Temperature returns the current temperature
func (g *Governor) Temperature() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.temperature
}

// ThrottleEvents returns how many times throttling has engaged
func (g *Governor) ThrottleEvents() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.throttleEvents
}

// Snapshot returns the current state for analytics
func (g *Governor) Snapshot() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return State{
		Temperature: g.temperature,
		Throttling:  g.temperature > g.cfg.ThrottleThreshold,
	}
}
