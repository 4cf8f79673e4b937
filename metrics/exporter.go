package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterType defines the type of metrics exporter
type ExporterType string

const (
	// StandardExporter uses the in-process collector
	StandardExporter ExporterType = "standard"
	// PrometheusExporter additionally publishes to a Prometheus registry
	PrometheusExporter ExporterType = "prometheus"
)

// Exporter defines the interface for metrics exporters
type Exporter interface {
	RecordHit()
	RecordMiss()
	RecordExpiration()
	RecordStore()
	RecordDelete()
	RecordEviction()
	RecordCapacityOverrun()
	RecordCompression()
	RecordCompressionFallback()
	RecordDecompressionFailure()
	RecordPredictions(n int)
	RecordPrefetchStore()
	RecordPrefetchHit()
	RecordPrefetchDrop()
	UpdateSizes(main, prefetch int64)
	UpdateMemory(bytes int64)
	UpdateThermal(temperature float64, throttling bool)
	UpdateCompressionRatio(ratio float64)
	GetSnapshot() Snapshot
	Restore(snap Snapshot)
	Reset()
}

// Prometheus implements Exporter, mirroring every count into Prometheus
// collectors while keeping an internal snapshot
type Prometheus struct {
	counters    map[string]*prometheus.CounterVec
	sizes       *prometheus.GaugeVec
	memory      *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	throttling  *prometheus.GaugeVec
	ratio       *prometheus.GaugeVec
	labels      prometheus.Labels

	inner Collector
}

// counterNames maps snapshot fields to Prometheus counter names
var counterNames = map[string]string{
	"hits":                   "cache_hits_total",
	"misses":                 "cache_misses_total",
	"expirations":            "cache_expirations_total",
	"stores":                 "cache_stores_total",
	"deletes":                "cache_deletes_total",
	"evictions":              "cache_evictions_total",
	"capacity_overruns":      "cache_capacity_overruns_total",
	"compressions":           "cache_compressions_total",
	"compression_fallbacks":  "cache_compression_fallbacks_total",
	"decompression_failures": "cache_decompression_failures_total",
	"predictions":            "cache_predictions_total",
	"prefetch_stores":        "cache_prefetch_stores_total",
	"prefetch_hits":          "cache_prefetch_hits_total",
	"prefetch_drops":         "cache_prefetch_drops_total",
}

// NewPrometheus creates a Prometheus exporter registered with reg. A nil
// registerer uses the default registry.
func NewPrometheus(cacheName string, reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	e := &Prometheus{
		counters: make(map[string]*prometheus.CounterVec, len(counterNames)),
		labels:   prometheus.Labels{"service": "adaptcache", "cache": cacheName},
	}
	e.inner.LastAccess.Store(time.Time{})

	for key, name := range counterNames {
		vec := prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name,
				Help: "Total number of cache " + key + " events",
			},
			[]string{"service", "cache"},
		)
		reg.MustRegister(vec)
		e.counters[key] = vec
	}

	e.sizes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of entries per tier",
		},
		[]string{"service", "cache", "tier"},
	)
	e.memory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_memory_bytes",
			Help: "Estimated resident bytes of cached values",
		},
		[]string{"service", "cache"},
	)
	e.temperature = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_temperature",
			Help: "Synthetic load temperature of the cache",
		},
		[]string{"service", "cache"},
	)
	e.throttling = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_throttling",
			Help: "Whether prefetching is currently throttled (0 or 1)",
		},
		[]string{"service", "cache"},
	)
	e.ratio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_compression_ratio",
			Help: "Resident bytes over original bytes for cached values",
		},
		[]string{"service", "cache"},
	)
	reg.MustRegister(e.sizes, e.memory, e.temperature, e.throttling, e.ratio)

	return e
}

func (e *Prometheus) inc(key string, counter *atomic.Int64) {
	e.counters[key].With(e.labels).Inc()
	counter.Add(1)
}

// RecordHit implements Exporter
func (e *Prometheus) RecordHit() {
	e.inc("hits", &e.inner.Hits)
	e.inner.LastAccess.Store(time.Now())
}

// RecordMiss implements Exporter
func (e *Prometheus) RecordMiss() {
	e.inc("misses", &e.inner.Misses)
	e.inner.LastAccess.Store(time.Now())
}

// RecordExpiration implements Exporter
func (e *Prometheus) RecordExpiration() {
	e.inc("expirations", &e.inner.Expirations)
}

// RecordStore implements Exporter
func (e *Prometheus) RecordStore() {
	e.inc("stores", &e.inner.Stores)
}

// RecordDelete implements Exporter
func (e *Prometheus) RecordDelete() {
	e.inc("deletes", &e.inner.Deletes)
}

// RecordEviction implements Exporter
func (e *Prometheus) RecordEviction() {
	e.inc("evictions", &e.inner.Evictions)
}

// RecordCapacityOverrun implements Exporter
func (e *Prometheus) RecordCapacityOverrun() {
	e.inc("capacity_overruns", &e.inner.CapacityOverruns)
}

// RecordCompression implements Exporter
func (e *Prometheus) RecordCompression() {
	e.inc("compressions", &e.inner.Compressions)
}

// RecordCompressionFallback implements Exporter
func (e *Prometheus) RecordCompressionFallback() {
	e.inc("compression_fallbacks", &e.inner.CompressionFallbacks)
}

// RecordDecompressionFailure implements Exporter
func (e *Prometheus) RecordDecompressionFailure() {
	e.inc("decompression_failures", &e.inner.DecompressionFailures)
}

// RecordPredictions implements Exporter
func (e *Prometheus) RecordPredictions(n int) {
	e.counters["predictions"].With(e.labels).Add(float64(n))
	e.inner.Predictions.Add(int64(n))
}

// RecordPrefetchStore implements Exporter
func (e *Prometheus) RecordPrefetchStore() {
	e.inc("prefetch_stores", &e.inner.PrefetchStores)
}

// RecordPrefetchHit implements Exporter
func (e *Prometheus) RecordPrefetchHit() {
	e.inc("prefetch_hits", &e.inner.PrefetchHits)
}

// RecordPrefetchDrop implements Exporter
func (e *Prometheus) RecordPrefetchDrop() {
	e.inc("prefetch_drops", &e.inner.PrefetchDrops)
}

// UpdateSizes implements Exporter
func (e *Prometheus) UpdateSizes(main, prefetch int64) {
	e.sizes.With(e.tierLabels("main")).Set(float64(main))
	e.sizes.With(e.tierLabels("prefetch")).Set(float64(prefetch))
	e.inner.UpdateSizes(main, prefetch)
}

// UpdateMemory implements Exporter
func (e *Prometheus) UpdateMemory(bytes int64) {
	e.memory.With(e.labels).Set(float64(bytes))
	e.inner.UpdateMemory(bytes)
}

// UpdateThermal implements Exporter
func (e *Prometheus) UpdateThermal(temperature float64, throttling bool) {
	e.temperature.With(e.labels).Set(temperature)
	throttled := 0.0
	if throttling {
		throttled = 1.0
	}
	e.throttling.With(e.labels).Set(throttled)
	e.inner.UpdateThermal(temperature, throttling)
}

// UpdateCompressionRatio implements Exporter
func (e *Prometheus) UpdateCompressionRatio(ratio float64) {
	e.ratio.With(e.labels).Set(ratio)
	e.inner.UpdateCompressionRatio(ratio)
}

func (e *Prometheus) tierLabels(tier string) prometheus.Labels {
	return prometheus.Labels{
		"service": e.labels["service"],
		"cache":   e.labels["cache"],
		"tier":    tier,
	}
}

// GetSnapshot implements Exporter
func (e *Prometheus) GetSnapshot() Snapshot {
	return e.inner.GetSnapshot()
}

// Restore implements Exporter. Prometheus collectors are cumulative and are
// left alone; only the internal snapshot is overwritten.
func (e *Prometheus) Restore(snap Snapshot) {
	e.inner.Restore(snap)
}

// Reset implements Exporter. Prometheus collectors are cumulative and are
// left alone; only the internal snapshot resets.
func (e *Prometheus) Reset() {
	e.inner.Reset()
}

// NewExporter creates a metrics exporter of the given type
func NewExporter(exporterType ExporterType, cacheName string, reg prometheus.Registerer) Exporter {
	switch exporterType {
	case PrometheusExporter:
		return NewPrometheus(cacheName, reg)
	default:
		return NewCollector()
	}
}
