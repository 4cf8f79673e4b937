package policy

import (
	"math"
	"sort"
	"time"
)

// Scoring terms. Age and idle time are normalized against fixed windows.
// The size bonus applies only below the access count cutoff, so large hot
// entries are not penalized for their size.
const (
	ageWindow       = 5 * time.Minute
	idleWindow      = time.Minute
	sizeBonusCutoff = 5
	sizeBonusUnit   = 1 << 20
	priorityFloor   = 0.0
	priorityCeil    = 10.0
)

// Scored implements the Policy interface using a composite value score.
// Old, idle, rarely accessed, low-priority, and large cold entries score
// high and are evicted first.
type Scored[K comparable] struct{}

// NewScored creates a new scored policy
func NewScored[K comparable]() *Scored[K] {
	return &Scored[K]{}
}

// Name identifies the policy in configuration and analytics
func (p *Scored[K]) Name() string {
	return "scored"
}

// Score computes the eviction score for one candidate at time now
func (p *Scored[K]) Score(c Candidate[K], now time.Time) float64 {
	score := now.Sub(c.Created).Seconds() / ageWindow.Seconds()
	score += now.Sub(c.LastAccess).Seconds() / idleWindow.Seconds()
	score -= math.Log(float64(c.AccessCount) + 1)
	score -= clampPriority(c.Priority)
	if c.AccessCount < sizeBonusCutoff {
		score += float64(c.CompressedSize) / sizeBonusUnit
	}
	return score
}

// SelectVictims returns the count highest-scoring unpinned candidates,
// ties broken by insertion sequence
func (p *Scored[K]) SelectVictims(candidates []Candidate[K], count int) []K {
	if count <= 0 {
		return nil
	}
	now := time.Now()
	pool := evictable(candidates)
	scores := make(map[K]float64, len(pool))
	for _, c := range pool {
		scores[c.Key] = p.Score(c, now)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		si, sj := scores[pool[i].Key], scores[pool[j].Key]
		if si != sj {
			return si > sj
		}
		return pool[i].Seq < pool[j].Seq
	})
	return collect(pool, count)
}

// clampPriority bounds the priority term so an oversized hint cannot act
// as a covert pin
func clampPriority(priority float64) float64 {
	if priority < priorityFloor {
		return priorityFloor
	}
	if priority > priorityCeil {
		return priorityCeil
	}
	return priority
}
