// Package metrics provides functionality for collecting and reporting cache performance metrics.
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Collector is the default in-process metrics implementation
type Collector struct {
	// Lookup counters
	Hits        atomic.Int64
	Misses      atomic.Int64
	Expirations atomic.Int64

	// Mutation counters
	Stores    atomic.Int64
	Deletes   atomic.Int64
	Evictions atomic.Int64

	// CapacityOverruns counts stores admitted past capacity because every
	// candidate was pinned
	CapacityOverruns atomic.Int64

	// Compression counters
	Compressions          atomic.Int64
	CompressionFallbacks  atomic.Int64
	DecompressionFailures atomic.Int64

	// Prefetch counters
	Predictions    atomic.Int64
	PrefetchStores atomic.Int64
	PrefetchHits   atomic.Int64
	PrefetchDrops  atomic.Int64

	// Gauges
	MainSize     atomic.Int64
	PrefetchSize atomic.Int64
	MemoryBytes  atomic.Int64

	// Sampled gauges, stored as float bits
	temperature atomic.Uint64
	ratio       atomic.Uint64
	throttling  atomic.Bool

	LastAccess atomic.Value // time.Time
}

// Snapshot is a thread-safe copy of metrics
type Snapshot struct {
	Hits                  int64     `json:"hits"`
	Misses                int64     `json:"misses"`
	Expirations           int64     `json:"expirations"`
	Stores                int64     `json:"stores"`
	Deletes               int64     `json:"deletes"`
	Evictions             int64     `json:"evictions"`
	CapacityOverruns      int64     `json:"capacityOverruns"`
	Compressions          int64     `json:"compressions"`
	CompressionFallbacks  int64     `json:"compressionFallbacks"`
	DecompressionFailures int64     `json:"decompressionFailures"`
	Predictions           int64     `json:"predictions"`
	PrefetchStores        int64     `json:"prefetchStores"`
	PrefetchHits          int64     `json:"prefetchHits"`
	PrefetchDrops         int64     `json:"prefetchDrops"`
	MainSize              int64     `json:"mainSize"`
	PrefetchSize          int64     `json:"prefetchSize"`
	MemoryBytes           int64     `json:"memoryBytes"`
	Temperature           float64   `json:"temperature"`
	Throttling            bool      `json:"throttling"`
	CompressionRatio      float64   `json:"compressionRatio"`
	LastAccess            time.Time `json:"lastAccess"`
}

// HitRate returns hits over total lookups, zero when nothing was looked up
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// PredictionAccuracy returns the share of prefetched entries that were
// later hit, zero when nothing was prefetched
func (s Snapshot) PredictionAccuracy() float64 {
	if s.PrefetchStores == 0 {
		return 0
	}
	return float64(s.PrefetchHits) / float64(s.PrefetchStores)
}

// NewCollector creates a new Collector instance
func NewCollector() *Collector {
	c := &Collector{}
	c.LastAccess.Store(time.Time{})
	return c
}

// RecordHit records a successful lookup
func (c *Collector) RecordHit() {
	c.Hits.Add(1)
	c.LastAccess.Store(time.Now())
}

// RecordMiss records a failed lookup
func (c *Collector) RecordMiss() {
	c.Misses.Add(1)
	c.LastAccess.Store(time.Now())
}

// RecordExpiration records an entry removed because its TTL passed
func (c *Collector) RecordExpiration() {
	c.Expirations.Add(1)
}

// RecordStore records a write
func (c *Collector) RecordStore() {
	c.Stores.Add(1)
}

// RecordDelete records an explicit removal
func (c *Collector) RecordDelete() {
	c.Deletes.Add(1)
}

// RecordEviction records a policy-selected removal
func (c *Collector) RecordEviction() {
	c.Evictions.Add(1)
}

// RecordCapacityOverrun records a store admitted past capacity because
// every candidate was pinned
func (c *Collector) RecordCapacityOverrun() {
	c.CapacityOverruns.Add(1)
}

// RecordCompression records a value stored in compressed form
func (c *Collector) RecordCompression() {
	c.Compressions.Add(1)
}

// RecordCompressionFallback records a value stored uncompressed after
// compression declined or failed
func (c *Collector) RecordCompressionFallback() {
	c.CompressionFallbacks.Add(1)
}

// RecordDecompressionFailure records a corrupted package treated as absent
func (c *Collector) RecordDecompressionFailure() {
	c.DecompressionFailures.Add(1)
}

// RecordPredictions records how many predictions one trigger issued
func (c *Collector) RecordPredictions(n int) {
	c.Predictions.Add(int64(n))
}

// RecordPrefetchStore records an entry materialized into the prefetch tier
func (c *Collector) RecordPrefetchStore() {
	c.PrefetchStores.Add(1)
}

// RecordPrefetchHit records a lookup served from a prefetched entry
func (c *Collector) RecordPrefetchHit() {
	c.PrefetchHits.Add(1)
}

// RecordPrefetchDrop records a prediction discarded before materializing
func (c *Collector) RecordPrefetchDrop() {
	c.PrefetchDrops.Add(1)
}

// UpdateSizes updates the per-tier entry count gauges
func (c *Collector) UpdateSizes(main, prefetch int64) {
	c.MainSize.Store(main)
	c.PrefetchSize.Store(prefetch)
}

// UpdateMemory updates the resident bytes gauge
func (c *Collector) UpdateMemory(bytes int64) {
	c.MemoryBytes.Store(bytes)
}

// UpdateThermal updates the temperature and throttling gauges
func (c *Collector) UpdateThermal(temperature float64, throttling bool) {
	c.temperature.Store(math.Float64bits(temperature))
	c.throttling.Store(throttling)
}

// UpdateCompressionRatio updates the resident-to-original size ratio gauge
func (c *Collector) UpdateCompressionRatio(ratio float64) {
	c.ratio.Store(math.Float64bits(ratio))
}

// GetSnapshot returns a thread-safe copy of current metrics
func (c *Collector) GetSnapshot() Snapshot {
	return Snapshot{
		Hits:                  c.Hits.Load(),
		Misses:                c.Misses.Load(),
		Expirations:           c.Expirations.Load(),
		Stores:                c.Stores.Load(),
		Deletes:               c.Deletes.Load(),
		Evictions:             c.Evictions.Load(),
		CapacityOverruns:      c.CapacityOverruns.Load(),
		Compressions:          c.Compressions.Load(),
		CompressionFallbacks:  c.CompressionFallbacks.Load(),
		DecompressionFailures: c.DecompressionFailures.Load(),
		Predictions:           c.Predictions.Load(),
		PrefetchStores:        c.PrefetchStores.Load(),
		PrefetchHits:          c.PrefetchHits.Load(),
		PrefetchDrops:         c.PrefetchDrops.Load(),
		MainSize:              c.MainSize.Load(),
		PrefetchSize:          c.PrefetchSize.Load(),
		MemoryBytes:           c.MemoryBytes.Load(),
		Temperature:           math.Float64frombits(c.temperature.Load()),
		Throttling:            c.throttling.Load(),
		CompressionRatio:      math.Float64frombits(c.ratio.Load()),
		LastAccess:            c.LastAccess.Load().(time.Time),
	}
}

// Restore overwrites every counter and gauge from a snapshot. Snapshot
// restores use it to carry counters across a serialize/deserialize cycle.
func (c *Collector) Restore(snap Snapshot) {
	c.Hits.Store(snap.Hits)
	c.Misses.Store(snap.Misses)
	c.Expirations.Store(snap.Expirations)
	c.Stores.Store(snap.Stores)
	c.Deletes.Store(snap.Deletes)
	c.Evictions.Store(snap.Evictions)
	c.CapacityOverruns.Store(snap.CapacityOverruns)
	c.Compressions.Store(snap.Compressions)
	c.CompressionFallbacks.Store(snap.CompressionFallbacks)
	c.DecompressionFailures.Store(snap.DecompressionFailures)
	c.Predictions.Store(snap.Predictions)
	c.PrefetchStores.Store(snap.PrefetchStores)
	c.PrefetchHits.Store(snap.PrefetchHits)
	c.PrefetchDrops.Store(snap.PrefetchDrops)
	c.MainSize.Store(snap.MainSize)
	c.PrefetchSize.Store(snap.PrefetchSize)
	c.MemoryBytes.Store(snap.MemoryBytes)
	c.temperature.Store(math.Float64bits(snap.Temperature))
	c.throttling.Store(snap.Throttling)
	c.ratio.Store(math.Float64bits(snap.CompressionRatio))
	c.LastAccess.Store(snap.LastAccess)
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	c.Hits.Store(0)
	c.Misses.Store(0)
	c.Expirations.Store(0)
	c.Stores.Store(0)
	c.Deletes.Store(0)
	c.Evictions.Store(0)
	c.CapacityOverruns.Store(0)
	c.Compressions.Store(0)
	c.CompressionFallbacks.Store(0)
	c.DecompressionFailures.Store(0)
	c.Predictions.Store(0)
	c.PrefetchStores.Store(0)
	c.PrefetchHits.Store(0)
	c.PrefetchDrops.Store(0)
	c.MainSize.Store(0)
	c.PrefetchSize.Store(0)
	c.MemoryBytes.Store(0)
	c.temperature.Store(0)
	c.throttling.Store(false)
	c.ratio.Store(0)
	c.LastAccess.Store(time.Time{})
}
