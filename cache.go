// Package adaptcache provides a generic, self-tuning in-process cache.
// Entries expire by TTL and are evicted by a score blending age, idleness,
// access frequency, priority, and size. Observed access patterns feed a
// prediction engine that prefetches likely followers into a separate
// speculative tier, large values are transparently compressed, and a thermal
// governor sheds speculative work when the cache runs hot.
package adaptcache

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BillPolly/adaptcache/codec"
	"github.com/BillPolly/adaptcache/errors"
	"github.com/BillPolly/adaptcache/internal"
	"github.com/BillPolly/adaptcache/metrics"
	"github.com/BillPolly/adaptcache/pattern"
	"github.com/BillPolly/adaptcache/policy"
	"github.com/BillPolly/adaptcache/predict"
	"github.com/BillPolly/adaptcache/thermal"
	"github.com/BillPolly/adaptcache/tier"
	"github.com/BillPolly/adaptcache/ttl"
)

const (
	tierMain     = "main"
	tierPrefetch = "prefetch"

	// minTransitionEvidence is the occurrence floor below which Optimize
	// forgets a key transition
	minTransitionEvidence = 2

	// destroyTimeout bounds how long Destroy waits for background work
	destroyTimeout = 5 * time.Second
)

// Store is an adaptive two-tier cache. K is the key type, V the value type,
// and C the workload context type used for pattern tracking; the zero value
// of C means "no context".
type Store[K comparable, V any, C comparable] struct {
	opts *Options[K, V, C]

	main     *tier.Tier[K, V]
	prefetch *tier.Tier[K, V]

	policy   policy.Policy[K]
	tracker  *pattern.Tracker[K, C]
	engine   *predict.Engine[K, C]
	governor *thermal.Governor
	codec    codec.Codec
	metrics  metrics.Exporter
	logger   *zap.Logger

	// evictMu serializes the capacity check, eviction, and insert so the
	// main tier never overshoots its maximum by racing writers
	evictMu sync.Mutex

	callbacks   []Callback[K]
	callbacksMu sync.RWMutex

	jobs     chan prefetchJob[K, C]
	inflight *internal.SafeMap[K, struct{}]
	backlog  *internal.SafeCounter
	limiter  *rate.Limiter

	closeOnce    sync.Once
	closed       atomic.Bool
	stop         chan struct{}
	workerDone   chan struct{}
	optimizeDone chan struct{}
}

// New creates a cache with the given options
func New[K comparable, V any, C comparable](opts ...Option[K, V, C]) (*Store[K, V, C], error) {
	options := DefaultOptions[K, V, C]()
	for _, opt := range opts {
		opt(options)
	}
	if err := validateOptions(options); err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	evictionPolicy := options.Policy
	if evictionPolicy == nil {
		evictionPolicy = policy.NewScored[K]()
	}

	var valueCodec codec.Codec
	if options.CompressionEnabled {
		c, ok := codec.ByAlgorithm(options.CompressionAlgorithm, options.CompressionConfig)
		if !ok {
			return nil, errors.WrapError("New", string(options.CompressionAlgorithm), errors.ErrInvalidConfig)
		}
		valueCodec = c
	}

	tracker := pattern.NewTracker[K, C](options.PatternConfig)
	predictors := predict.StandardPredictors(tracker)
	if options.Model != nil {
		predictors = append(predictors, predict.NewModel(options.Model))
	}

	s := &Store[K, V, C]{
		opts:       options,
		main:       tier.New[K, V](tierMain),
		prefetch:   tier.New[K, V](tierPrefetch),
		policy:     evictionPolicy,
		tracker:    tracker,
		engine:     predict.NewEngine(options.PredictConfig, predictors...),
		governor:   thermal.NewGovernor(options.ThermalConfig),
		codec:      valueCodec,
		metrics:    metrics.NewExporter(options.MetricsExporter, options.Name, options.Registerer),
		logger:     logger,
		jobs:       make(chan prefetchJob[K, C], options.PrefetchQueueSize),
		inflight:   internal.NewSafeMap[K, struct{}](),
		backlog:    internal.NewSafeCounter(),
		limiter:    rate.NewLimiter(rate.Limit(options.PrefetchRate), options.PrefetchBurst),
		stop:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}

	go s.prefetchWorker()

	if options.OptimizeInterval > 0 {
		s.optimizeDone = make(chan struct{})
		go s.optimizeLoop(options.OptimizeInterval)
	}

	s.logger.Debug("cache created",
		zap.String("cache", options.Name),
		zap.Int("max_size", options.MaxSize),
		zap.String("policy", evictionPolicy.Name()))
	return s, nil
}

func validateOptions[K comparable, V any, C comparable](o *Options[K, V, C]) error {
	if o.MaxSize <= 0 {
		return errors.WrapError("New", nil, errors.ErrInvalidSize)
	}
	if o.EvictTarget <= 0 || o.EvictTarget > 1 {
		return errors.WrapError("New", "evict target", errors.ErrInvalidConfig)
	}
	if o.PredictConfig.Threshold < 0 || o.PredictConfig.Threshold > 1 {
		return errors.WrapError("New", "prediction threshold", errors.ErrInvalidConfig)
	}
	if o.PredictConfig.MaxPredictions <= 0 {
		return errors.WrapError("New", "max predictions", errors.ErrInvalidConfig)
	}
	if o.PrefetchQueueSize <= 0 || o.PrefetchRate <= 0 || o.PrefetchBurst <= 0 {
		return errors.WrapError("New", "prefetch limits", errors.ErrInvalidConfig)
	}
	if o.ProducerTimeout <= 0 {
		return errors.WrapError("New", "producer timeout", errors.ErrInvalidConfig)
	}
	return o.ThermalConfig.Validate()
}

// hasContext reports whether a context value was supplied. The zero value
// of C is the "no context" marker.
func hasContext[C comparable](cctx C) bool {
	var zero C
	return cctx != zero
}

// Get looks up key. The access is recorded for pattern tracking whether or
// not it hits; pass the zero value of C when there is no workload context.
// A hit touches the entry, heats the governor, and may schedule prefetching
// of predicted followers. A hit in the prefetch tier promotes the entry to
// the main tier under the standard TTL. An expired entry is removed and
// counted as an expiration plus a miss.
func (s *Store[K, V, C]) Get(key K, cctx C) (V, bool) {
	var zero V
	if s.closed.Load() {
		return zero, false
	}
	defer func() {
		if errors.RecoverFromPanic("Get", key) {
			s.logger.Error("recovered from panic", zap.String("op", "Get"))
		}
	}()

	s.tracker.Observe(key, cctx, hasContext(cctx))
	s.governor.Heat()

	if entry, outcome := s.main.Get(key); outcome != tier.Miss {
		if outcome == tier.Expired {
			s.metrics.RecordExpiration()
			s.metrics.RecordMiss()
			s.emitEvent(EventTypeExpiration, key, tierMain)
			return zero, false
		}
		value, ok := s.materialize(key, entry)
		if !ok {
			s.metrics.RecordMiss()
			return zero, false
		}
		s.metrics.RecordHit()
		s.emitEvent(EventTypeHit, key, tierMain)
		s.schedulePredictions(key, cctx)
		return value, true
	}

	if value, ok := s.promoteFromPrefetch(key); ok {
		s.metrics.RecordHit()
		s.metrics.RecordPrefetchHit()
		s.emitEvent(EventTypePromotion, key, tierPrefetch)
		s.schedulePredictions(key, cctx)
		return value, true
	}

	s.metrics.RecordMiss()
	return zero, false
}

// Store inserts or replaces key. Values at or above the compression
// threshold are stored compressed when the savings clear the configured bar.
// Storing a new key at capacity first evicts down to the configured target;
// when every candidate is pinned the entry is admitted anyway and a capacity
// overrun is counted.
func (s *Store[K, V, C]) Store(key K, value V, opts ...StoreOption[C]) {
	if s.closed.Load() {
		return
	}
	defer func() {
		if errors.RecoverFromPanic("Store", key) {
			s.logger.Error("recovered from panic", zap.String("op", "Store"))
		}
	}()

	so := newStoreOptions(opts)
	s.tracker.Observe(key, so.cctx, hasContext(so.cctx))
	s.governor.Heat()

	entry := s.buildEntry(value, so)

	s.evictMu.Lock()
	s.ensureCapacity(key)
	s.main.Put(key, entry)
	s.evictMu.Unlock()

	s.metrics.RecordStore()
	s.emitEvent(EventTypeStore, key, tierMain)
	s.refreshGauges()
}

// Has reports whether key is live in either tier. It touches nothing and
// updates no statistics.
func (s *Store[K, V, C]) Has(key K) bool {
	if s.closed.Load() {
		return false
	}
	if _, ok := s.main.Peek(key); ok {
		return true
	}
	_, ok := s.prefetch.Peek(key)
	return ok
}

// Delete removes key from both tiers. Deleting an absent key is a no-op.
func (s *Store[K, V, C]) Delete(key K) {
	if s.closed.Load() {
		return
	}
	deleted := s.main.Delete(key)
	if s.prefetch.Delete(key) {
		deleted = true
	}
	if deleted {
		s.metrics.RecordDelete()
		s.emitEvent(EventTypeDelete, key, tierMain)
		s.refreshGauges()
	}
}

// Clear drops every entry in both tiers, resets all counters, and forgets
// the recorded access patterns
func (s *Store[K, V, C]) Clear() {
	if s.closed.Load() {
		return
	}
	s.evictMu.Lock()
	s.main.Clear()
	s.prefetch.Clear()
	s.evictMu.Unlock()

	s.tracker.Reset()
	s.metrics.Reset()
	s.refreshGauges()

	var zeroKey K
	s.emitEvent(EventTypeClear, zeroKey, tierMain)
	s.logger.Debug("cache cleared", zap.String("cache", s.opts.Name))
}

// Pin exempts key's main-tier entry from eviction until it is unpinned.
// Pinned entries still expire. Returns false when the key is not live in
// the main tier.
func (s *Store[K, V, C]) Pin(key K) bool {
	if s.closed.Load() {
		return false
	}
	return s.main.Pin(key)
}

// Unpin makes key's main-tier entry evictable again
func (s *Store[K, V, C]) Unpin(key K) bool {
	if s.closed.Load() {
		return false
	}
	return s.main.Unpin(key)
}

// Len returns the number of main-tier entries, expired ones included until
// the next sweep
func (s *Store[K, V, C]) Len() int {
	if s.closed.Load() {
		return 0
	}
	return s.main.Len()
}

// PrefetchLen returns the number of prefetch-tier entries
func (s *Store[K, V, C]) PrefetchLen() int {
	if s.closed.Load() {
		return 0
	}
	return s.prefetch.Len()
}

// Optimize runs one maintenance pass: expired entries are swept from both
// tiers, weak transition evidence is pruned, the governor cools one step,
// and the gauge metrics refresh. New starts a ticker that calls it
// periodically unless the interval is zero; it may also be called manually.
func (s *Store[K, V, C]) Optimize() {
	if s.closed.Load() {
		return
	}
	for _, key := range s.main.PruneExpired() {
		s.metrics.RecordExpiration()
		s.emitEvent(EventTypeExpiration, key, tierMain)
	}
	for _, key := range s.prefetch.PruneExpired() {
		s.metrics.RecordExpiration()
		s.emitEvent(EventTypeExpiration, key, tierPrefetch)
	}
	pruned := s.tracker.PruneTransitions(minTransitionEvidence)
	s.governor.Cool()
	s.refreshGauges()

	s.logger.Debug("optimize pass",
		zap.Int("transitions_pruned", pruned),
		zap.Float64("temperature", s.governor.Temperature()))
}

// Destroy stops background work, drops all entries, and makes every later
// operation a no-op. It is idempotent; only the first call can report a
// shutdown timeout.
func (s *Store[K, V, C]) Destroy() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)

		deadline := time.After(destroyTimeout)
		for _, done := range []chan struct{}{s.workerDone, s.optimizeDone} {
			if done == nil {
				continue
			}
			select {
			case <-done:
			case <-deadline:
				err = errors.WrapError("Destroy", nil, errors.ErrShutdownTimeout)
				return
			}
		}

		s.main.Clear()
		s.prefetch.Clear()
		s.tracker.Reset()
		s.backlog.Reset()
		s.refreshGauges()

		s.callbacksMu.Lock()
		s.callbacks = nil
		s.callbacksMu.Unlock()

		s.logger.Debug("cache destroyed", zap.String("cache", s.opts.Name))
	})
	return err
}

func (s *Store[K, V, C]) optimizeLoop(interval time.Duration) {
	defer close(s.optimizeDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Optimize()
		case <-s.stop:
			return
		}
	}
}

// buildEntry computes the stored form of a value: sizes, expiry, and the
// compressed package when compression is on and pays off
func (s *Store[K, V, C]) buildEntry(value V, so *storeOptions[C]) *tier.Entry[V] {
	now := time.Now()
	dur := s.opts.TTLConfig.DefaultTTL
	if so.hasTTL {
		dur = ttl.Normalize(so.ttl, s.opts.TTLConfig)
	}

	entry := &tier.Entry[V]{
		Value:      value,
		Created:    now,
		LastAccess: now,
		Expires:    ttl.GetExpirationTime(dur, s.opts.TTLConfig),
		Priority:   so.priority,
		TTL:        dur,
		Metadata:   so.metadata,
		Pinned:     so.pinned,
	}
	size := internal.EstimateSize(value)
	entry.OriginalSize = size
	entry.CompressedSize = size

	if s.codec == nil {
		return entry
	}
	kind, data, err := codec.EncodeValue(value)
	if err != nil {
		s.logger.Debug("value not encodable, storing raw", zap.Error(err))
		return entry
	}
	// the encoded length is a better size estimate than the header fallback
	entry.OriginalSize = len(data)
	entry.CompressedSize = len(data)
	if len(data) < s.opts.CompressionConfig.MinSize {
		return entry
	}
	pkg, ok := s.codec.Compress(kind, data)
	if !ok {
		s.metrics.RecordCompressionFallback()
		return entry
	}

	var zeroValue V
	entry.Value = zeroValue
	entry.Compressed = pkg
	entry.OriginalSize = pkg.OriginalSize
	entry.CompressedSize = pkg.Size()
	s.metrics.RecordCompression()
	return entry
}

// materialize turns a stored entry back into a value. A package that no
// longer decompresses is dropped and reported absent.
func (s *Store[K, V, C]) materialize(key K, entry *tier.Entry[V]) (V, bool) {
	var zero V
	if entry.Compressed == nil {
		return entry.Value, true
	}
	data, err := codec.Decompress(entry.Compressed)
	if err == nil {
		var value V
		if value, err = codec.DecodeValue[V](entry.Compressed.Kind, data); err == nil {
			return value, true
		}
	}

	s.main.Delete(key)
	s.metrics.RecordDecompressionFailure()
	s.logger.Warn("dropping entry with unrecoverable payload",
		zap.Any("key", key),
		zap.Error(err))
	return zero, false
}

// promoteFromPrefetch moves a live prefetch-tier entry into the main tier,
// re-arming it with the standard TTL. Promotion respects main-tier capacity.
func (s *Store[K, V, C]) promoteFromPrefetch(key K) (V, bool) {
	var zero V
	entry, ok := s.prefetch.Take(key)
	if !ok {
		return zero, false
	}
	value, ok := s.materialize(key, entry)
	if !ok {
		return zero, false
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	entry.TTL = s.opts.TTLConfig.DefaultTTL
	entry.Expires = ttl.GetExpirationTime(entry.TTL, s.opts.TTLConfig)

	s.evictMu.Lock()
	s.ensureCapacity(key)
	s.main.Put(key, entry)
	s.evictMu.Unlock()

	s.refreshGauges()
	return value, true
}

// ensureCapacity makes room for one new key, evicting down to the
// configured target when the main tier is full. Callers hold evictMu.
func (s *Store[K, V, C]) ensureCapacity(key K) {
	if s.main.Contains(key) || s.main.Len() < s.opts.MaxSize {
		return
	}

	target := int(math.Floor(float64(s.opts.MaxSize) * s.opts.EvictTarget))
	need := s.main.Len() - target
	if minNeed := s.main.Len() + 1 - s.opts.MaxSize; need < minNeed {
		need = minNeed
	}

	victims := s.policy.SelectVictims(s.main.Candidates(), need)
	for _, victim := range victims {
		if s.main.Delete(victim) {
			s.metrics.RecordEviction()
			s.emitEvent(EventTypeEviction, victim, tierMain)
		}
	}

	if s.main.Len() >= s.opts.MaxSize {
		s.metrics.RecordCapacityOverrun()
		s.logger.Warn("admitting entry past capacity, all candidates pinned",
			zap.Int("size", s.main.Len()),
			zap.Int("max_size", s.opts.MaxSize),
			zap.Error(errors.WrapError("Store", key, errors.ErrCapacityOverrun)))
	}
}

// refreshGauges pushes the size, memory, compression, and thermal gauges
func (s *Store[K, V, C]) refreshGauges() {
	s.metrics.UpdateSizes(int64(s.main.Len()), int64(s.prefetch.Len()))

	mainOriginal, mainResident := s.main.TotalSizes()
	prefetchOriginal, prefetchResident := s.prefetch.TotalSizes()
	s.metrics.UpdateMemory(mainResident + prefetchResident)

	ratio := 1.0
	if original := mainOriginal + prefetchOriginal; original > 0 {
		ratio = float64(mainResident+prefetchResident) / float64(original)
	}
	s.metrics.UpdateCompressionRatio(ratio)
	s.metrics.UpdateThermal(s.governor.Temperature(), s.governor.Throttling())
}
