// Package pattern records a bounded history of cache accesses and derives
// the signals prediction runs on: long-run frequency per key, sequential
// transition counts per ordered key pair, and context-to-keys associations.
package pattern

import (
	"sort"
	"sync"
	"time"
)

// Config represents configuration for the tracker
type Config struct {
	// HistorySize bounds the access ring; the oldest record is dropped
	// once the ring is full
	HistorySize int

	// MaxKeysPerContext bounds each context's association list
	MaxKeysPerContext int
}

// DefaultConfig returns the default tracker configuration
func DefaultConfig() Config {
	return Config{
		HistorySize:       100,
		MaxKeysPerContext: 20,
	}
}

// Record is one observed access
type Record[K comparable, C comparable] struct {
	Key        K
	Timestamp  time.Time
	Context    C
	HasContext bool
}

// KeyCount pairs a key with its access count
type KeyCount[K comparable] struct {
	Key   K
	Count int64
}

// Stats is a read-only view of tracker sizes for analytics
type Stats struct {
	HistoryLen      int
	TrackedKeys     int
	TransitionPairs int
	Contexts        int
}

// Tracker maintains the bounded access structures. Recording is O(1)
// amortized; reads scan bounded structures only, never a full entry set.
type Tracker[K comparable, C comparable] struct {
	mu          sync.RWMutex
	cfg         Config
	ring        []Record[K, C]
	frequencies map[K]int64
	firstSeen   map[K]int64
	seen        int64
	transitions map[K]map[K]int64
	contexts    map[C][]K
	lastKey     K
	hasLast     bool
}

// NewTracker creates a tracker with the given configuration
func NewTracker[K comparable, C comparable](cfg Config) *Tracker[K, C] {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	if cfg.MaxKeysPerContext <= 0 {
		cfg.MaxKeysPerContext = DefaultConfig().MaxKeysPerContext
	}
	return &Tracker[K, C]{
		cfg:         cfg,
		frequencies: make(map[K]int64),
		firstSeen:   make(map[K]int64),
		transitions: make(map[K]map[K]int64),
		contexts:    make(map[C][]K),
	}
}

// Observe records one access with an optional context
func (t *Tracker[K, C]) Observe(key K, cctx C, hasCtx bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ring = append(t.ring, Record[K, C]{
		Key:        key,
		Timestamp:  time.Now(),
		Context:    cctx,
		HasContext: hasCtx,
	})
	if len(t.ring) > t.cfg.HistorySize {
		t.ring = t.ring[1:]
	}

	t.frequencies[key]++
	if _, ok := t.firstSeen[key]; !ok {
		t.firstSeen[key] = t.seen
		t.seen++
	}

	if t.hasLast {
		next, ok := t.transitions[t.lastKey]
		if !ok {
			next = make(map[K]int64)
			t.transitions[t.lastKey] = next
		}
		next[key]++
	}
	t.lastKey = key
	t.hasLast = true

	if hasCtx {
		keys := t.contexts[cctx]
		known := false
		for _, k := range keys {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			keys = append(keys, key)
			if len(keys) > t.cfg.MaxKeysPerContext {
				keys = keys[1:]
			}
			t.contexts[cctx] = keys
		}
	}
}

// Frequency returns the long-run access count for a key. Counts only ever
// grow; they are not windowed by the ring.
func (t *Tracker[K, C]) Frequency(key K) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frequencies[key]
}

// TransitionsFrom returns a copy of the observed next-key counts for a key
func (t *Tracker[K, C]) TransitionsFrom(key K) map[K]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	next, ok := t.transitions[key]
	if !ok {
		return nil
	}
	out := make(map[K]int64, len(next))
	for k, n := range next {
		out[k] = n
	}
	return out
}

// TopKeys returns up to n keys by access count, excluding one key (the
// current access). Ordering is deterministic: count descending, then first
// access order.
func (t *Tracker[K, C]) TopKeys(n int, exclude K) []KeyCount[K] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]KeyCount[K], 0, len(t.frequencies))
	for k, c := range t.frequencies {
		if k == exclude {
			continue
		}
		out = append(out, KeyCount[K]{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return t.firstSeen[out[i].Key] < t.firstSeen[out[j].Key]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ContextKeys returns a copy of the keys recorded under a context
func (t *Tracker[K, C]) ContextKeys(cctx C) []K {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys, ok := t.contexts[cctx]
	if !ok {
		return nil
	}
	return append([]K(nil), keys...)
}

// History returns a copy of the access ring, oldest first
func (t *Tracker[K, C]) History() []Record[K, C] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Record[K, C](nil), t.ring...)
}

// PruneTransitions drops transition pairs observed fewer than min times and
// returns how many pairs were removed. Maintenance calls this to keep weak
// one-off sequences from accumulating.
func (t *Tracker[K, C]) PruneTransitions(min int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for from, next := range t.transitions {
		for to, count := range next {
			if count < min {
				delete(next, to)
				pruned++
			}
		}
		if len(next) == 0 {
			delete(t.transitions, from)
		}
	}
	return pruned
}

// Reset drops all recorded state
func (t *Tracker[K, C]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ring = nil
	t.frequencies = make(map[K]int64)
	t.firstSeen = make(map[K]int64)
	t.seen = 0
	t.transitions = make(map[K]map[K]int64)
	t.contexts = make(map[C][]K)
	t.hasLast = false
}

// Stats returns current structure sizes
func (t *Tracker[K, C]) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pairs := 0
	for _, next := range t.transitions {
		pairs += len(next)
	}
	return Stats{
		HistoryLen:      len(t.ring),
		TrackedKeys:     len(t.frequencies),
		TransitionPairs: pairs,
		Contexts:        len(t.contexts),
	}
}
