package adaptcache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
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

func applyOptions(opts ...Option[string, string, string]) *Options[string, string, string] {
	options := DefaultOptions[string, string, string]()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions[string, string, string]()

	require.Equal(t, "adaptcache", o.Name)
	require.Equal(t, 1000, o.MaxSize)
	require.InDelta(t, 0.9, o.EvictTarget, 0.0001)
	require.Nil(t, o.Policy)
	require.Equal(t, 5*time.Minute, o.TTLConfig.DefaultTTL)
	require.Equal(t, time.Minute, o.PrefetchTTLConfig.DefaultTTL)
	require.True(t, o.CompressionEnabled)
	require.Equal(t, codec.AlgorithmDictionary, o.CompressionAlgorithm)
	require.Equal(t, 1024, o.CompressionConfig.MinSize)
	require.InDelta(t, 0.7, o.PredictConfig.Threshold, 0.0001)
	require.Equal(t, 5, o.PredictConfig.MaxPredictions)
	require.Nil(t, o.Model)
	require.Nil(t, o.Producer)
	require.Equal(t, 64, o.PrefetchQueueSize)
	require.InDelta(t, 50.0, o.PrefetchRate, 0.0001)
	require.Equal(t, 10, o.PrefetchBurst)
	require.Equal(t, 5*time.Second, o.ProducerTimeout)
	require.InDelta(t, 80.0, o.ThermalConfig.ThrottleThreshold, 0.0001)
	require.Equal(t, time.Minute, o.OptimizeInterval)
	require.Nil(t, o.Logger)
	require.Equal(t, metrics.StandardExporter, o.MetricsExporter)
	require.Nil(t, o.Registerer)
}

func TestOptionApplication(t *testing.T) {
	registry := prometheus.NewRegistry()
	logger := zap.NewNop()
	producer := func(ctx context.Context, key string) (string, bool, error) {
		return "", false, nil
	}
	model := func(key string, cctx string, hasCtx bool) []predict.Prediction[string] {
		return nil
	}

	o := applyOptions(
		WithName[string, string, string]("render"),
		WithMaxSize[string, string, string](64),
		WithEvictTarget[string, string, string](0.8),
		WithPolicy[string, string, string](policy.NewLRU[string]()),
		WithDefaultTTL[string, string, string](10*time.Minute),
		WithoutCompression[string, string, string](),
		WithPatternConfig[string, string, string](pattern.Config{HistorySize: 7, MaxKeysPerContext: 3}),
		WithPredictionThreshold[string, string, string](0.9),
		WithModel[string, string, string](model),
		WithProducer[string, string, string](producer),
		WithPrefetchQueueSize[string, string, string](8),
		WithPrefetchRate[string, string, string](10, 2),
		WithProducerTimeout[string, string, string](2*time.Second),
		WithThermalConfig[string, string, string](thermal.Config{
			InitialTemperature: 5,
			HeatingRate:        1.1,
			CoolingRate:        0.9,
			ThrottleThreshold:  50,
			MaxTemperature:     60,
		}),
		WithOptimizeInterval[string, string, string](0),
		WithLogger[string, string, string](logger),
		WithMetricsExporter[string, string, string](metrics.PrometheusExporter),
		WithRegisterer[string, string, string](registry),
	)

	require.Equal(t, "render", o.Name)
	require.Equal(t, 64, o.MaxSize)
	require.InDelta(t, 0.8, o.EvictTarget, 0.0001)
	require.Equal(t, "lru", o.Policy.Name())
	require.Equal(t, 10*time.Minute, o.TTLConfig.DefaultTTL)
	require.False(t, o.CompressionEnabled)
	require.Equal(t, 7, o.PatternConfig.HistorySize)
	require.InDelta(t, 0.9, o.PredictConfig.Threshold, 0.0001)
	require.NotNil(t, o.Model)
	require.NotNil(t, o.Producer)
	require.Equal(t, 8, o.PrefetchQueueSize)
	require.InDelta(t, 10.0, o.PrefetchRate, 0.0001)
	require.Equal(t, 2, o.PrefetchBurst)
	require.Equal(t, 2*time.Second, o.ProducerTimeout)
	require.InDelta(t, 50.0, o.ThermalConfig.ThrottleThreshold, 0.0001)
	require.Zero(t, o.OptimizeInterval)
	require.Same(t, logger, o.Logger)
	require.Equal(t, metrics.PrometheusExporter, o.MetricsExporter)
	require.Same(t, registry, o.Registerer)
}

func TestCompressionOptions(t *testing.T) {
	o := applyOptions(
		WithCompressionAlgorithm[string, string, string](codec.AlgorithmGzip),
		WithCompression[string, string, string](codec.Config{
			MinSize:    256,
			MaxSize:    1 << 20,
			MinSavings: 0.1,
			Level:      9,
		}),
	)

	require.True(t, o.CompressionEnabled)
	require.Equal(t, codec.AlgorithmGzip, o.CompressionAlgorithm)
	require.Equal(t, 256, o.CompressionConfig.MinSize)
	require.Equal(t, 9, o.CompressionConfig.Level)
}

func TestTTLConfigOption(t *testing.T) {
	custom := ttl.Config{
		DefaultTTL:           30 * time.Second,
		MinTTL:               time.Second,
		MaxTTL:               time.Hour,
		ZeroTTLMeansNoExpiry: false,
	}
	o := applyOptions(WithTTLConfig[string, string, string](custom))
	require.Equal(t, custom, o.TTLConfig)

	prefetch := ttl.DefaultPrefetchConfig()
	prefetch.DefaultTTL = 15 * time.Second
	o = applyOptions(WithPrefetchTTLConfig[string, string, string](prefetch))
	require.Equal(t, 15*time.Second, o.PrefetchTTLConfig.DefaultTTL)
}

func TestFromConfig(t *testing.T) {
	t.Run("Custom Values Flow Through", func(t *testing.T) {
		cfg := config.NewDefault()
		cfg.Cache.Name = "from-config"
		cfg.Cache.MaxEntries = 42
		cfg.Cache.EvictionPolicy = "lru"
		cfg.Cache.DefaultTTL = 90 * time.Second
		cfg.Prefetch.TTL = 30 * time.Second
		cfg.Thermal.ThrottleThreshold = 70
		cfg.Monitoring.MetricsExporter = "prometheus"

		o := applyOptions(FromConfig[string, string, string](cfg)...)

		require.Equal(t, "from-config", o.Name)
		require.Equal(t, 42, o.MaxSize)
		require.Equal(t, "lru", o.Policy.Name())
		require.Equal(t, 90*time.Second, o.TTLConfig.DefaultTTL)
		require.Equal(t, 30*time.Second, o.PrefetchTTLConfig.DefaultTTL)
		require.InDelta(t, 70.0, o.ThermalConfig.ThrottleThreshold, 0.0001)
		require.Equal(t, metrics.PrometheusExporter, o.MetricsExporter)
		require.True(t, o.CompressionEnabled)
		require.InDelta(t, 0.7, o.PredictConfig.Threshold, 0.0001)
	})

	t.Run("Disabled Compression", func(t *testing.T) {
		cfg := config.NewDefault()
		cfg.Compression.Enabled = false

		o := applyOptions(FromConfig[string, string, string](cfg)...)
		require.False(t, o.CompressionEnabled)
	})

	t.Run("Disabled Prefetch Raises Threshold", func(t *testing.T) {
		cfg := config.NewDefault()
		cfg.Prefetch.Enabled = false

		o := applyOptions(FromConfig[string, string, string](cfg)...)
		require.InDelta(t, 1.0, o.PredictConfig.Threshold, 0.0001)
	})

	t.Run("Constructs A Working Cache", func(t *testing.T) {
		cache, err := New(FromConfig[string, string, string](config.NewDefault())...)
		require.NoError(t, err)
		defer func() { require.NoError(t, cache.Destroy()) }()

		cache.Store("key", "value")
		value, ok := cache.Get("key", "")
		require.True(t, ok)
		require.Equal(t, "value", value)
	})
}
