package policy

import (
	"sort"
)

// LFU implements the Policy interface using Least Frequently Used strategy
type LFU[K comparable] struct{}

// NewLFU creates a new LFU policy
func NewLFU[K comparable]() *LFU[K] {
	return &LFU[K]{}
}

// Name identifies the policy in configuration and analytics
func (p *LFU[K]) Name() string {
	return "lfu"
}

// SelectVictims returns the count least-accessed unpinned candidates
func (p *LFU[K]) SelectVictims(candidates []Candidate[K], count int) []K {
	if count <= 0 {
		return nil
	}
	pool := evictable(candidates)
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].AccessCount != pool[j].AccessCount {
			return pool[i].AccessCount < pool[j].AccessCount
		}
		return pool[i].Seq < pool[j].Seq
	})
	return collect(pool, count)
}
