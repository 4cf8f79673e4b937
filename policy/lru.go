package policy

import (
	"sort"
)

// LRU implements the Policy interface using Least Recently Used strategy
type LRU[K comparable] struct{}

// NewLRU creates a new LRU policy
func NewLRU[K comparable]() *LRU[K] {
	return &LRU[K]{}
}

// Name identifies the policy in configuration and analytics
func (p *LRU[K]) Name() string {
	return "lru"
}

// SelectVictims returns the count longest-idle unpinned candidates
func (p *LRU[K]) SelectVictims(candidates []Candidate[K], count int) []K {
	if count <= 0 {
		return nil
	}
	pool := evictable(candidates)
	sort.SliceStable(pool, func(i, j int) bool {
		if !pool[i].LastAccess.Equal(pool[j].LastAccess) {
			return pool[i].LastAccess.Before(pool[j].LastAccess)
		}
		return pool[i].Seq < pool[j].Seq
	})
	return collect(pool, count)
}
