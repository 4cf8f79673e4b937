package adaptcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BillPolly/adaptcache/codec"
	"github.com/BillPolly/adaptcache/config"
	"github.com/BillPolly/adaptcache/metrics"
	"github.com/BillPolly/adaptcache/pattern"
	"github.com/BillPolly/adaptcache/policy"
	"github.com/BillPolly/adaptcache/predict"
	"github.com/BillPolly/adaptcache/thermal"
	"github.com/BillPolly/adaptcache/ttl"
)

// Options represents configuration options for cache creation
type Options[K comparable, V any, C comparable] struct {
	// Name labels the cache in metrics and logs
	Name string

	// MaxSize is the maximum number of main-tier entries
	MaxSize int

	// EvictTarget is the fraction of MaxSize that eviction shrinks the
	// main tier down to
	EvictTarget float64

	// Policy selects eviction victims. Nil uses the scored policy.
	Policy policy.Policy[K]

	// TTLConfig governs main-tier expiry
	TTLConfig ttl.Config

	// PrefetchTTLConfig governs prefetch-tier expiry
	PrefetchTTLConfig ttl.Config

	// CompressionEnabled toggles transparent value compression
	CompressionEnabled bool

	// CompressionAlgorithm selects the codec
	CompressionAlgorithm codec.Algorithm

	// CompressionConfig tunes compression eligibility and savings gates
	CompressionConfig codec.Config

	// PatternConfig bounds access history tracking
	PatternConfig pattern.Config

	// PredictConfig tunes prediction merging. A threshold of 1.0 disables
	// prediction entirely.
	PredictConfig predict.Config

	// Model is an optional extra predictor consulted alongside the
	// standard three
	Model predict.ModelFunc[K, C]

	// Producer materializes values for prefetching. Nil leaves prefetch
	// inoperative.
	Producer Producer[K, V]

	// PrefetchQueueSize bounds the background materialization queue
	PrefetchQueueSize int

	// PrefetchRate caps producer calls per second
	PrefetchRate float64

	// PrefetchBurst is the rate limiter burst allowance
	PrefetchBurst int

	// ProducerTimeout bounds a single producer call
	ProducerTimeout time.Duration

	// ThermalConfig tunes load shedding for speculative work
	ThermalConfig thermal.Config

	// OptimizeInterval is the period of the background maintenance pass.
	// Zero disables the ticker; Optimize can still be called manually.
	OptimizeInterval time.Duration

	// Logger receives diagnostics. Nil uses a no-op logger.
	Logger *zap.Logger

	// MetricsExporter selects the metrics backend
	MetricsExporter metrics.ExporterType

	// Registerer receives Prometheus collectors when the Prometheus
	// exporter is selected. Nil uses the default registry.
	Registerer prometheus.Registerer
}

// Option is a function that modifies cache options
type Option[K comparable, V any, C comparable] func(*Options[K, V, C])

// DefaultOptions returns the default cache options
func DefaultOptions[K comparable, V any, C comparable]() *Options[K, V, C] {
	return &Options[K, V, C]{
		Name:                 "adaptcache",
		MaxSize:              1000,
		EvictTarget:          0.9,
		TTLConfig:            ttl.DefaultConfig(),
		PrefetchTTLConfig:    ttl.DefaultPrefetchConfig(),
		CompressionEnabled:   true,
		CompressionAlgorithm: codec.AlgorithmDictionary,
		CompressionConfig:    codec.DefaultConfig(),
		PatternConfig:        pattern.DefaultConfig(),
		PredictConfig:        predict.DefaultConfig(),
		PrefetchQueueSize:    64,
		PrefetchRate:         50,
		PrefetchBurst:        10,
		ProducerTimeout:      5 * time.Second,
		ThermalConfig:        thermal.DefaultConfig(),
		OptimizeInterval:     time.Minute,
		MetricsExporter:      metrics.StandardExporter,
	}
}

// WithName sets the cache name used in metrics labels and logs
func WithName[K comparable, V any, C comparable](name string) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.Name = name
	}
}

// WithMaxSize sets the maximum number of main-tier entries
func WithMaxSize[K comparable, V any, C comparable](size int) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.MaxSize = size
	}
}

// WithEvictTarget sets the fraction of MaxSize eviction shrinks to
func WithEvictTarget[K comparable, V any, C comparable](target float64) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.EvictTarget = target
	}
}

// WithPolicy sets the eviction policy
func WithPolicy[K comparable, V any, C comparable](p policy.Policy[K]) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.Policy = p
	}
}

// WithTTLConfig sets the main-tier TTL configuration
func WithTTLConfig[K comparable, V any, C comparable](cfg ttl.Config) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.TTLConfig = cfg
	}
}

// WithDefaultTTL sets the default time-to-live for main-tier entries
func WithDefaultTTL[K comparable, V any, C comparable](d time.Duration) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.TTLConfig.DefaultTTL = d
	}
}

// WithPrefetchTTLConfig sets the prefetch-tier TTL configuration
func WithPrefetchTTLConfig[K comparable, V any, C comparable](cfg ttl.Config) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.PrefetchTTLConfig = cfg
	}
}

// WithCompression enables compression with the given gates
func WithCompression[K comparable, V any, C comparable](cfg codec.Config) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.CompressionEnabled = true
		o.CompressionConfig = cfg
	}
}

// WithCompressionAlgorithm selects the compression codec
func WithCompressionAlgorithm[K comparable, V any, C comparable](alg codec.Algorithm) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.CompressionAlgorithm = alg
	}
}

// WithoutCompression stores every value raw
func WithoutCompression[K comparable, V any, C comparable]() Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.CompressionEnabled = false
	}
}

// WithPatternConfig sets the access tracking bounds
func WithPatternConfig[K comparable, V any, C comparable](cfg pattern.Config) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.PatternConfig = cfg
	}
}

// WithPredictConfig sets the prediction merging configuration
func WithPredictConfig[K comparable, V any, C comparable](cfg predict.Config) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.PredictConfig = cfg
	}
}

// WithPredictionThreshold sets the minimum merged confidence a prediction
// must exceed to schedule prefetching. 1.0 disables prediction entirely.
func WithPredictionThreshold[K comparable, V any, C comparable](threshold float64) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.PredictConfig.Threshold = threshold
	}
}

// WithModel adds a custom predictor consulted alongside the standard three
func WithModel[K comparable, V any, C comparable](fn predict.ModelFunc[K, C]) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.Model = fn
	}
}

// WithProducer sets the value producer used to materialize prefetched keys
func WithProducer[K comparable, V any, C comparable](p Producer[K, V]) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.Producer = p
	}
}

// WithPrefetchQueueSize bounds the background materialization queue
func WithPrefetchQueueSize[K comparable, V any, C comparable](size int) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.PrefetchQueueSize = size
	}
}

// WithPrefetchRate caps producer calls per second with the given burst
func WithPrefetchRate[K comparable, V any, C comparable](perSecond float64, burst int) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.PrefetchRate = perSecond
		o.PrefetchBurst = burst
	}
}

// WithProducerTimeout bounds a single producer call
func WithProducerTimeout[K comparable, V any, C comparable](d time.Duration) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.ProducerTimeout = d
	}
}

// WithThermalConfig sets the load shedding configuration
func WithThermalConfig[K comparable, V any, C comparable](cfg thermal.Config) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.ThermalConfig = cfg
	}
}

// WithOptimizeInterval sets the period of the background maintenance pass.
// Zero disables the ticker.
func WithOptimizeInterval[K comparable, V any, C comparable](d time.Duration) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.OptimizeInterval = d
	}
}

// WithLogger sets the diagnostics logger
func WithLogger[K comparable, V any, C comparable](logger *zap.Logger) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.Logger = logger
	}
}

// WithMetricsExporter selects the metrics backend
func WithMetricsExporter[K comparable, V any, C comparable](exporterType metrics.ExporterType) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.MetricsExporter = exporterType
	}
}

// WithRegisterer sets the Prometheus registerer used when the Prometheus
// exporter is selected
func WithRegisterer[K comparable, V any, C comparable](reg prometheus.Registerer) Option[K, V, C] {
	return func(o *Options[K, V, C]) {
		o.Registerer = reg
	}
}

// FromConfig lowers a loaded configuration into cache options. Settings a
// configuration file cannot express, such as the producer or a custom model,
// are layered on top with further options.
func FromConfig[K comparable, V any, C comparable](cfg *config.Configuration) []Option[K, V, C] {
	opts := []Option[K, V, C]{
		WithName[K, V, C](cfg.Cache.Name),
		WithMaxSize[K, V, C](cfg.Cache.MaxEntries),
		WithEvictTarget[K, V, C](cfg.Cache.EvictTarget),
		WithOptimizeInterval[K, V, C](cfg.Cache.OptimizeInterval),
		WithDefaultTTL[K, V, C](cfg.Cache.DefaultTTL),
	}

	if p, ok := policy.ByName[K](cfg.Cache.EvictionPolicy); ok {
		opts = append(opts, WithPolicy[K, V, C](p))
	}

	if cfg.Compression.Enabled {
		opts = append(opts,
			WithCompressionAlgorithm[K, V, C](codec.Algorithm(cfg.Compression.Algorithm)),
			WithCompression[K, V, C](codec.Config{
				MinSize:    cfg.Compression.MinSize,
				MaxSize:    cfg.Compression.MaxSize,
				MinSavings: cfg.Compression.MinSavings,
				Level:      cfg.Compression.Level,
			}))
	} else {
		opts = append(opts, WithoutCompression[K, V, C]())
	}

	opts = append(opts, WithPatternConfig[K, V, C](pattern.Config{
		HistorySize:       cfg.Pattern.HistorySize,
		MaxKeysPerContext: cfg.Pattern.MaxKeysPerContext,
	}))

	predictCfg := predict.Config{
		Threshold:      cfg.Prefetch.Threshold,
		MaxPredictions: cfg.Prefetch.MaxPredictions,
	}
	if !cfg.Prefetch.Enabled {
		predictCfg.Threshold = 1.0
	}
	prefetchTTL := ttl.DefaultPrefetchConfig()
	prefetchTTL.DefaultTTL = cfg.Prefetch.TTL
	opts = append(opts,
		WithPredictConfig[K, V, C](predictCfg),
		WithPrefetchTTLConfig[K, V, C](prefetchTTL),
		WithPrefetchQueueSize[K, V, C](cfg.Prefetch.QueueSize),
		WithPrefetchRate[K, V, C](cfg.Prefetch.RatePerSecond, cfg.Prefetch.Burst),
		WithProducerTimeout[K, V, C](cfg.Prefetch.ProducerTimeout))

	opts = append(opts, WithThermalConfig[K, V, C](thermal.Config{
		InitialTemperature: cfg.Thermal.InitialTemperature,
		HeatingRate:        cfg.Thermal.HeatingRate,
		CoolingRate:        cfg.Thermal.CoolingRate,
		ThrottleThreshold:  cfg.Thermal.ThrottleThreshold,
		MaxTemperature:     cfg.Thermal.MaxTemperature,
	}))

	opts = append(opts, WithMetricsExporter[K, V, C](metrics.ExporterType(cfg.Monitoring.MetricsExporter)))
	return opts
}
