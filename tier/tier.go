// Package tier provides the synchronized entry map backing one cache tier.
// A tier is passive: it runs no goroutines and enforces no capacity; the
// owning cache drives expiry sweeps and eviction through the policy layer.
package tier

import (
	"sort"
	"sync"
	"time"

	"github.com/BillPolly/adaptcache/codec"
	"github.com/BillPolly/adaptcache/policy"
	"github.com/BillPolly/adaptcache/ttl"
)

// Entry represents one cached value with its bookkeeping. Value, Compressed,
// the size fields, Created, TTL, and Metadata are never mutated after Put;
// LastAccess, AccessCount, and Pinned change only under the tier lock.
type Entry[V any] struct {
	Value          V              `json:"value"`
	Compressed     *codec.Package `json:"compressed,omitempty"`
	OriginalSize   int            `json:"originalSize"`
	CompressedSize int            `json:"compressedSize"`
	Created        time.Time      `json:"created"`
	LastAccess     time.Time      `json:"lastAccess"`
	Expires        time.Time      `json:"expires"`
	AccessCount    int64          `json:"accessCount"`
	Priority       float64        `json:"priority"`
	TTL            time.Duration  `json:"ttl"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Pinned         bool           `json:"pinned,omitempty"`
	Prefetched     bool           `json:"prefetched,omitempty"`

	seq uint64
}

// Expired reports whether the entry is past its expiry time. A zero Expires
// means the entry never expires.
func (e *Entry[V]) Expired() bool {
	return !e.Expires.IsZero() && ttl.IsExpired(e.Expires)
}

// EffectivePriority is the stored priority hint raised by access frequency.
// Each access adds 0.05, capped one full point above the hint.
func (e *Entry[V]) EffectivePriority() float64 {
	boost := 0.05 * float64(e.AccessCount)
	if boost > 1.0 {
		boost = 1.0
	}
	return e.Priority + boost
}

// Outcome describes a Get result
type Outcome int

const (
	// Hit means a live entry was found and touched
	Hit Outcome = iota
	// Miss means the key is unknown
	Miss
	// Expired means the entry existed but was past its TTL and has been
	// removed as a side effect
	Expired
)

// KeyEntry pairs a key with a copy of its entry for export
type KeyEntry[K comparable, V any] struct {
	Key   K        `json:"key"`
	Entry Entry[V] `json:"entry"`
}

// Tier is a synchronized map of entries
type Tier[K comparable, V any] struct {
	mu    sync.RWMutex
	name  string
	items map[K]*Entry[V]
	seq   uint64
}

// New creates an empty tier. The name labels the tier in events and logs.
func New[K comparable, V any](name string) *Tier[K, V] {
	return &Tier[K, V]{
		name:  name,
		items: make(map[K]*Entry[V]),
	}
}

// Name returns the tier's label
func (t *Tier[K, V]) Name() string {
	return t.name
}

// Put inserts or replaces an entry. Replacement assigns a fresh insertion
// sequence, so a rewritten key ranks as newly inserted for tie-breaks.
func (t *Tier[K, V]) Put(key K, entry *Entry[V]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	entry.seq = t.seq
	t.items[key] = entry
}

// Get looks up a live entry and touches it. An expired entry is deleted as
// a side effect and reported as Expired.
func (t *Tier[K, V]) Get(key K) (*Entry[V], Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.items[key]
	if !exists {
		return nil, Miss
	}
	if entry.Expired() {
		delete(t.items, key)
		return nil, Expired
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	return entry, Hit
}

// Peek looks up a live entry without touching it. Expired entries are
// reported absent but left in place for the next sweep.
func (t *Tier[K, V]) Peek(key K) (*Entry[V], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.items[key]
	if !exists || entry.Expired() {
		return nil, false
	}
	return entry, true
}

// Contains reports whether the key occupies a slot, expired or not. Writers
// use it to tell a replacement from an insertion that grows the map.
func (t *Tier[K, V]) Contains(key K) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, exists := t.items[key]
	return exists
}

// Take removes and returns a live entry, for promotion between tiers
func (t *Tier[K, V]) Take(key K) (*Entry[V], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.items[key]
	if !exists {
		return nil, false
	}
	delete(t.items, key)
	if entry.Expired() {
		return nil, false
	}
	return entry, true
}

// Delete removes an entry, reporting whether it existed
func (t *Tier[K, V]) Delete(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.items[key]
	delete(t.items, key)
	return exists
}

// Clear removes all entries and returns how many were dropped
func (t *Tier[K, V]) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.items)
	t.items = make(map[K]*Entry[V])
	return n
}

// Len returns the number of entries, including any not yet swept
func (t *Tier[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Keys returns all keys in insertion order
func (t *Tier[K, V]) Keys() []K {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]K, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return t.items[keys[i]].seq < t.items[keys[j]].seq
	})
	return keys
}

// Pin marks an entry exempt from eviction, reporting whether it exists
func (t *Tier[K, V]) Pin(key K) bool {
	return t.setPinned(key, true)
}

// Unpin clears the eviction exemption, reporting whether the entry exists
func (t *Tier[K, V]) Unpin(key K) bool {
	return t.setPinned(key, false)
}

func (t *Tier[K, V]) setPinned(key K, pinned bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.items[key]
	if !exists || entry.Expired() {
		return false
	}
	entry.Pinned = pinned
	return true
}

// Candidates returns a point-in-time eviction view of every entry
func (t *Tier[K, V]) Candidates() []policy.Candidate[K] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]policy.Candidate[K], 0, len(t.items))
	for k, e := range t.items {
		out = append(out, policy.Candidate[K]{
			Key:            k,
			Created:        e.Created,
			LastAccess:     e.LastAccess,
			AccessCount:    e.AccessCount,
			Priority:       e.EffectivePriority(),
			CompressedSize: e.CompressedSize,
			Pinned:         e.Pinned,
			Seq:            e.seq,
		})
	}
	return out
}

// PruneExpired removes every expired entry and returns the removed keys
func (t *Tier[K, V]) PruneExpired() []K {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []K
	for k, e := range t.items {
		if e.Expired() {
			delete(t.items, k)
			removed = append(removed, k)
		}
	}
	return removed
}

// Dump returns copies of all live entries in insertion order, for
// serialization outside the lock
func (t *Tier[K, V]) Dump() []KeyEntry[K, V] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]KeyEntry[K, V], 0, len(t.items))
	for k, e := range t.items {
		if e.Expired() {
			continue
		}
		out = append(out, KeyEntry[K, V]{Key: k, Entry: *e})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Entry.seq < out[j].Entry.seq
	})
	return out
}

// TotalSizes returns the summed original and resident byte estimates of all
// live entries
func (t *Tier[K, V]) TotalSizes() (original int64, resident int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.items {
		if e.Expired() {
			continue
		}
		original += int64(e.OriginalSize)
		resident += int64(e.CompressedSize)
	}
	return original, resident
}
