package adaptcache

import (
	"github.com/BillPolly/adaptcache/metrics"
	"github.com/BillPolly/adaptcache/thermal"
)

// Analytics is a point-in-time view of cache effectiveness
type Analytics struct {
	HitRate            float64          `json:"hitRate"`
	MissRate           float64          `json:"missRate"`
	Evictions          int64            `json:"evictions"`
	Expirations        int64            `json:"expirations"`
	CapacityOverruns   int64            `json:"capacityOverruns"`
	CompressionRatio   float64          `json:"compressionRatio"`
	PredictionAccuracy float64          `json:"predictionAccuracy"`
	CacheSize          int              `json:"cacheSize"`
	PrefetchSize       int              `json:"prefetchSize"`
	PrefetchBacklog    int64            `json:"prefetchBacklog"`
	Thermal            thermal.State    `json:"thermal"`
	Counters           metrics.Snapshot `json:"counters"`
}

// Analytics assembles the current analytics view. The compression ratio is
// resident bytes over original bytes, 1.0 for an empty cache. Analytics
// stays readable after Destroy.
func (s *Store[K, V, C]) Analytics() Analytics {
	snap := s.metrics.GetSnapshot()

	mainOriginal, mainResident := s.main.TotalSizes()
	prefetchOriginal, prefetchResident := s.prefetch.TotalSizes()
	ratio := 1.0
	if original := mainOriginal + prefetchOriginal; original > 0 {
		ratio = float64(mainResident+prefetchResident) / float64(original)
	}

	missRate := 0.0
	if total := snap.Hits + snap.Misses; total > 0 {
		missRate = float64(snap.Misses) / float64(total)
	}

	return Analytics{
		HitRate:            snap.HitRate(),
		MissRate:           missRate,
		Evictions:          snap.Evictions,
		Expirations:        snap.Expirations,
		CapacityOverruns:   snap.CapacityOverruns,
		CompressionRatio:   ratio,
		PredictionAccuracy: snap.PredictionAccuracy(),
		CacheSize:          s.main.Len(),
		PrefetchSize:       s.prefetch.Len(),
		PrefetchBacklog:    s.backlog.Get(),
		Thermal:            s.governor.Snapshot(),
		Counters:           snap,
	}
}
