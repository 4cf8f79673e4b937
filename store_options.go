package adaptcache

import "time"

// defaultPriority is the eviction priority hint entries get when the caller
// supplies none
const defaultPriority = 1.0

// storeOptions collects the per-call settings of one Store
type storeOptions[C comparable] struct {
	priority float64
	ttl      time.Duration
	hasTTL   bool
	metadata map[string]any
	cctx     C
	pinned   bool
}

// StoreOption configures a single Store call
type StoreOption[C comparable] func(*storeOptions[C])

// WithPriority sets the entry's eviction priority hint. Higher values make
// eviction less likely; the scored policy clamps the effective value to
// [0, 10].
func WithPriority[C comparable](priority float64) StoreOption[C] {
	return func(o *storeOptions[C]) {
		o.priority = priority
	}
}

// WithTTL overrides the default time-to-live for this entry. Zero means no
// expiry when the TTL configuration allows it; out-of-range values are
// clamped to the configured bounds.
func WithTTL[C comparable](d time.Duration) StoreOption[C] {
	return func(o *storeOptions[C]) {
		o.ttl = d
		o.hasTTL = true
	}
}

// WithMetadata attaches caller metadata to the entry. The map is stored as
// given and carried through snapshots.
func WithMetadata[C comparable](metadata map[string]any) StoreOption[C] {
	return func(o *storeOptions[C]) {
		o.metadata = metadata
	}
}

// WithContext tags the access with a workload context for pattern tracking
func WithContext[C comparable](cctx C) StoreOption[C] {
	return func(o *storeOptions[C]) {
		o.cctx = cctx
	}
}

// WithPinned stores the entry pinned, exempting it from eviction until it
// is unpinned. Pinned entries still expire.
func WithPinned[C comparable]() StoreOption[C] {
	return func(o *storeOptions[C]) {
		o.pinned = true
	}
}

func newStoreOptions[C comparable](opts []StoreOption[C]) *storeOptions[C] {
	so := &storeOptions[C]{priority: defaultPriority}
	for _, opt := range opts {
		opt(so)
	}
	return so
}
