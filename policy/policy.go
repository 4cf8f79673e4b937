// Package policy selects eviction victims from candidate snapshots. A
// policy is a pure selector: the tier owns entry state and hands over a
// point-in-time candidate list; the policy returns the keys to evict, most
// evictable first. Pinned candidates are never selected by any policy.
package policy

import (
	"time"
)

// Candidate is a point-in-time view of one entry for eviction decisions
type Candidate[K comparable] struct {
	Key            K
	Created        time.Time
	LastAccess     time.Time
	AccessCount    int64
	Priority       float64
	CompressedSize int
	Pinned         bool

	// Seq is the entry's insertion sequence, used to break ties
	// deterministically (earlier inserted evicted first)
	Seq uint64
}

// Policy defines the interface for cache eviction policies
type Policy[K comparable] interface {
	// Name identifies the policy in configuration and analytics
	Name() string

	// SelectVictims returns up to count keys to evict, most evictable
	// first. Pinned candidates are never returned.
	SelectVictims(candidates []Candidate[K], count int) []K
}

// ByName returns the policy registered under name. An empty name selects
// the scored policy.
func ByName[K comparable](name string) (Policy[K], bool) {
	switch name {
	case "", "scored":
		return NewScored[K](), true
	case "lru":
		return NewLRU[K](), true
	case "lfu":
		return NewLFU[K](), true
	case "fifo":
		return NewFIFO[K](), true
	}
	return nil, false
}

// evictable filters out pinned candidates
func evictable[K comparable](candidates []Candidate[K]) []Candidate[K] {
	out := make([]Candidate[K], 0, len(candidates))
	for _, c := range candidates {
		if !c.Pinned {
			out = append(out, c)
		}
	}
	return out
}

// collect returns the first count keys from an ordered candidate slice
func collect[K comparable](ordered []Candidate[K], count int) []K {
	if count > len(ordered) {
		count = len(ordered)
	}
	keys := make([]K, 0, count)
	for _, c := range ordered[:count] {
		keys = append(keys, c.Key)
	}
	return keys
}
