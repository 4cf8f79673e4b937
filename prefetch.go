package adaptcache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BillPolly/adaptcache/errors"
	"github.com/BillPolly/adaptcache/internal"
	"github.com/BillPolly/adaptcache/tier"
	"github.com/BillPolly/adaptcache/ttl"
)

// Producer materializes a value for a prefetched key. It reports found=false
// when the key has no value; returning errors.ErrKeyNotFound means the same
// thing. Any other error is logged and the key skipped. The context carries
// the configured producer timeout.
type Producer[K comparable, V any] func(ctx context.Context, key K) (value V, found bool, err error)

// prefetchJob is one queued materialization request
type prefetchJob[K comparable, C comparable] struct {
	key  K
	cctx C
}

// Prefetch asks the producer to materialize keys into the prefetch tier.
// Keys already live in either tier are skipped. The work is fire-and-forget:
// jobs queue behind a bounded channel and are dropped, counted, when it is
// full. Without a producer the call warns and does nothing.
func (s *Store[K, V, C]) Prefetch(keys []K, cctx C) {
	if s.closed.Load() {
		return
	}
	if s.opts.Producer == nil {
		s.logger.Warn("prefetch requested without a producer",
			zap.String("cache", s.opts.Name),
			zap.Error(errors.WrapError("Prefetch", nil, errors.ErrNoProducer)))
		return
	}
	for _, key := range keys {
		s.enqueuePrefetch(key, cctx)
	}
}

// schedulePredictions runs the prediction engine for one hit and queues
// materialization of the predicted keys. Skipped while the governor
// throttles or when no producer is configured.
func (s *Store[K, V, C]) schedulePredictions(key K, cctx C) {
	if s.opts.Producer == nil || s.governor.Throttling() {
		return
	}
	predictions := s.engine.Predict(key, cctx, hasContext(cctx))
	if len(predictions) == 0 {
		return
	}
	s.metrics.RecordPredictions(len(predictions))
	for _, p := range predictions {
		s.enqueuePrefetch(p.Key, cctx)
	}
}

func (s *Store[K, V, C]) enqueuePrefetch(key K, cctx C) {
	if s.closed.Load() || s.Has(key) {
		return
	}
	select {
	case s.jobs <- prefetchJob[K, C]{key: key, cctx: cctx}:
		s.backlog.Increment()
	default:
		s.metrics.RecordPrefetchDrop()
		s.logger.Debug("prefetch queue full, dropping", zap.Any("key", key))
	}
}

func (s *Store[K, V, C]) prefetchWorker() {
	defer close(s.workerDone)
	for {
		select {
		case job := <-s.jobs:
			s.runPrefetch(job)
			s.backlog.Decrement()
		case <-s.stop:
			return
		}
	}
}

// runPrefetch materializes one key through the producer and stores the
// result in the prefetch tier under the shorter prefetch TTL
func (s *Store[K, V, C]) runPrefetch(job prefetchJob[K, C]) {
	if s.closed.Load() || s.opts.Producer == nil {
		return
	}
	if !s.inflight.SetIfAbsent(job.key, struct{}{}) {
		return
	}
	defer s.inflight.Delete(job.key)

	// the key may have been stored while the job sat in the queue
	if s.Has(job.key) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ProducerTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		s.metrics.RecordPrefetchDrop()
		s.logger.Debug("prefetch rate limited, dropping", zap.Any("key", job.key))
		return
	}

	value, found, err := s.opts.Producer(ctx, job.key)
	if err != nil {
		if errors.IsKeyNotFound(err) {
			return
		}
		s.logger.Warn("producer failed",
			zap.Any("key", job.key),
			zap.Error(producerError(ctx, job.key, err)))
		return
	}
	if !found {
		return
	}

	now := time.Now()
	dur := s.opts.PrefetchTTLConfig.DefaultTTL
	entry := &tier.Entry[V]{
		Value:      value,
		Created:    now,
		LastAccess: now,
		Expires:    ttl.GetExpirationTime(dur, s.opts.PrefetchTTLConfig),
		Priority:   defaultPriority,
		TTL:        dur,
		Prefetched: true,
	}
	size := internal.EstimateSize(value)
	entry.OriginalSize = size
	entry.CompressedSize = size

	s.prefetch.Put(job.key, entry)
	s.metrics.RecordPrefetchStore()
	s.emitEvent(EventTypePrefetch, job.key, tierPrefetch)
	s.refreshGauges()
}

// producerError classifies a producer failure, folding an expired call
// context into the timeout sentinel
func producerError(ctx context.Context, key any, err error) error {
	cause := errors.ErrProducerFailed
	if ctx.Err() != nil {
		cause = errors.ErrProducerTimeout
	}
	return errors.WrapError("Prefetch", key, fmt.Errorf("%w: %v", cause, err))
}
