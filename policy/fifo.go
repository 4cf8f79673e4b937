package policy

import (
	"sort"
)

// FIFO implements the Policy interface using First In First Out strategy
type FIFO[K comparable] struct{}

// NewFIFO creates a new FIFO policy
func NewFIFO[K comparable]() *FIFO[K] {
	return &FIFO[K]{}
}

// Name identifies the policy in configuration and analytics
func (p *FIFO[K]) Name() string {
	return "fifo"
}

// SelectVictims returns the count earliest-inserted unpinned candidates
func (p *FIFO[K]) SelectVictims(candidates []Candidate[K], count int) []K {
	if count <= 0 {
		return nil
	}
	pool := evictable(candidates)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Seq < pool[j].Seq
	})
	return collect(pool, count)
}
