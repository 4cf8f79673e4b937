package adaptcache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cacheerrors "github.com/BillPolly/adaptcache/errors"
	"github.com/BillPolly/adaptcache/thermal"
)

func newTestCache(t *testing.T, opts ...Option[string, string, string]) *Store[string, string, string] {
	t.Helper()
	base := []Option[string, string, string]{
		WithOptimizeInterval[string, string, string](0),
	}
	cache, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Destroy() })
	return cache
}

func TestCacheBasicOperations(t *testing.T) {
	cache := newTestCache(t)

	// Store and Get
	cache.Store("key1", "value1")
	value, ok := cache.Get("key1", "")
	require.True(t, ok)
	require.Equal(t, "value1", value)
	require.True(t, cache.Has("key1"))
	require.Equal(t, 1, cache.Len())

	// Replacing a key keeps a single entry
	cache.Store("key1", "value1b")
	value, ok = cache.Get("key1", "")
	require.True(t, ok)
	require.Equal(t, "value1b", value)
	require.Equal(t, 1, cache.Len())

	// Delete
	cache.Delete("key1")
	_, ok = cache.Get("key1", "")
	require.False(t, ok)
	require.False(t, cache.Has("key1"))

	// Deleting an absent key changes nothing
	before := cache.Analytics().Counters.Deletes
	cache.Delete("missing")
	require.Equal(t, before, cache.Analytics().Counters.Deletes)

	// Clear
	cache.Store("key2", "value2")
	cache.Store("key3", "value3")
	cache.Clear()
	require.Equal(t, 0, cache.Len())
	_, ok = cache.Get("key2", "")
	require.False(t, ok)
}

func TestCacheMissAccounting(t *testing.T) {
	cache := newTestCache(t)

	_, ok := cache.Get("absent", "")
	require.False(t, ok)

	cache.Store("present", "v")
	_, ok = cache.Get("present", "")
	require.True(t, ok)

	stats := cache.Analytics()
	require.Equal(t, int64(1), stats.Counters.Hits)
	require.Equal(t, int64(1), stats.Counters.Misses)
	require.InDelta(t, 0.5, stats.HitRate, 0.0001)
	require.InDelta(t, 0.5, stats.MissRate, 0.0001)
}

func TestCacheTTLExpiration(t *testing.T) {
	cache := newTestCache(t)

	cache.Store("short", "value", WithTTL[string](50*time.Millisecond))
	time.Sleep(120 * time.Millisecond)

	// Three lookups after expiry: all miss, but only the first finds the
	// stale entry and counts an expiration
	for i := 0; i < 3; i++ {
		_, ok := cache.Get("short", "")
		require.False(t, ok)
	}

	stats := cache.Analytics()
	require.Equal(t, int64(0), stats.Counters.Hits)
	require.Equal(t, int64(3), stats.Counters.Misses)
	require.Equal(t, int64(1), stats.Expirations)
	require.Equal(t, 0, cache.Len())
}

func TestCacheTTLSweep(t *testing.T) {
	cache := newTestCache(t)

	cache.Store("short", "value", WithTTL[string](40*time.Millisecond))
	cache.Store("long", "value", WithTTL[string](time.Hour))
	time.Sleep(80 * time.Millisecond)

	// The stale entry lingers until a sweep
	require.Equal(t, 2, cache.Len())
	cache.Optimize()
	require.Equal(t, 1, cache.Len())
	require.True(t, cache.Has("long"))

	stats := cache.Analytics()
	require.Equal(t, int64(1), stats.Expirations)
	require.Equal(t, int64(0), stats.Counters.Misses)
}

func TestCacheDefaultTTLApplies(t *testing.T) {
	cache := newTestCache(t, WithDefaultTTL[string, string, string](50*time.Millisecond))

	cache.Store("key", "value")
	_, ok := cache.Get("key", "")
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok = cache.Get("key", "")
	require.False(t, ok)
	require.Equal(t, int64(1), cache.Analytics().Expirations)
}

func TestCacheEviction(t *testing.T) {
	cache := newTestCache(t, WithMaxSize[string, string, string](10))

	for i := 1; i <= 15; i++ {
		cache.Store(fmt.Sprintf("key%d", i), "value")
	}

	stats := cache.Analytics()
	require.Equal(t, 10, cache.Len())
	require.Equal(t, int64(5), stats.Evictions)
	require.Equal(t, int64(0), stats.CapacityOverruns)

	// The oldest five entries were the victims
	for i := 1; i <= 5; i++ {
		require.False(t, cache.Has(fmt.Sprintf("key%d", i)), "key%d should be evicted", i)
	}
	for i := 6; i <= 15; i++ {
		require.True(t, cache.Has(fmt.Sprintf("key%d", i)), "key%d should survive", i)
	}
}

func TestCacheEvictionPrefersLowPriority(t *testing.T) {
	cache := newTestCache(t, WithMaxSize[string, string, string](3), WithEvictTarget[string, string, string](1.0))

	cache.Store("low", "value", WithPriority[string](0.5))
	cache.Store("high1", "value", WithPriority[string](5))
	cache.Store("high2", "value", WithPriority[string](5))

	cache.Store("new", "value", WithPriority[string](5))

	require.False(t, cache.Has("low"))
	require.True(t, cache.Has("high1"))
	require.True(t, cache.Has("high2"))
	require.True(t, cache.Has("new"))
	require.Equal(t, int64(1), cache.Analytics().Evictions)
}

func TestCacheReplacementDoesNotEvict(t *testing.T) {
	cache := newTestCache(t, WithMaxSize[string, string, string](2))

	cache.Store("a", "1")
	cache.Store("b", "2")
	cache.Store("a", "1b")

	require.Equal(t, 2, cache.Len())
	require.Equal(t, int64(0), cache.Analytics().Evictions)
}

func TestCachePinning(t *testing.T) {
	t.Run("Pinned Entries Survive Eviction", func(t *testing.T) {
		cache := newTestCache(t, WithMaxSize[string, string, string](3))

		cache.Store("keep", "value", WithPinned[string]())
		cache.Store("a", "value")
		cache.Store("b", "value")

		for i := 0; i < 5; i++ {
			cache.Store(fmt.Sprintf("filler%d", i), "value")
		}

		require.True(t, cache.Has("keep"))
	})

	t.Run("All Pinned Admits Past Capacity", func(t *testing.T) {
		cacheerrors.ResetErrorMetrics()
		cache := newTestCache(t, WithMaxSize[string, string, string](3))

		cache.Store("a", "value", WithPinned[string]())
		cache.Store("b", "value", WithPinned[string]())
		cache.Store("c", "value", WithPinned[string]())

		cache.Store("d", "value")

		stats := cache.Analytics()
		require.Equal(t, 4, cache.Len())
		require.Equal(t, int64(1), stats.CapacityOverruns)
		require.Equal(t, int64(0), stats.Evictions)
		for _, key := range []string{"a", "b", "c", "d"} {
			require.True(t, cache.Has(key))
		}

		// The overrun is also recorded in the error metrics bag
		require.Equal(t, int64(1), cacheerrors.GetErrorMetrics().CacheErrors.Load())
	})

	t.Run("Pin And Unpin", func(t *testing.T) {
		cache := newTestCache(t, WithMaxSize[string, string, string](2), WithEvictTarget[string, string, string](1.0))

		cache.Store("a", "value")
		cache.Store("b", "value")
		require.True(t, cache.Pin("a"))
		require.False(t, cache.Pin("missing"))

		// b is the only candidate
		cache.Store("c", "value")
		require.True(t, cache.Has("a"))
		require.False(t, cache.Has("b"))

		require.True(t, cache.Unpin("a"))
		cache.Store("d", "value")
		require.False(t, cache.Has("a"))
	})

	t.Run("Pinned Entries Still Expire", func(t *testing.T) {
		cache := newTestCache(t)

		cache.Store("pinned", "value", WithPinned[string](), WithTTL[string](40*time.Millisecond))
		time.Sleep(80 * time.Millisecond)

		_, ok := cache.Get("pinned", "")
		require.False(t, ok)
		require.Equal(t, int64(1), cache.Analytics().Expirations)
	})
}

func TestCacheClearResetsCounters(t *testing.T) {
	cache := newTestCache(t)

	cache.Store("a", "1")
	cache.Get("a", "")
	cache.Get("missing", "")
	require.NotZero(t, cache.Analytics().Counters.Hits)

	cache.Clear()

	stats := cache.Analytics()
	require.Equal(t, 0, cache.Len())
	require.Equal(t, int64(0), stats.Counters.Hits)
	require.Equal(t, int64(0), stats.Counters.Misses)
	require.Equal(t, int64(0), stats.Counters.Stores)
	require.Equal(t, float64(0), stats.HitRate)
}

func TestCacheEvents(t *testing.T) {
	cache := newTestCache(t, WithMaxSize[string, string, string](2))

	var mu sync.Mutex
	var got []Event[string]
	cache.OnEvent(func(ev Event[string]) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	cache.Store("a", "1")
	cache.Get("a", "")
	cache.Store("b", "2")
	cache.Store("c", "3") // evicts b, the only never-accessed entry
	cache.Delete("a")
	cache.Clear()

	mu.Lock()
	defer mu.Unlock()

	byType := make(map[EventType][]Event[string])
	for _, ev := range got {
		byType[ev.Type] = append(byType[ev.Type], ev)
		require.False(t, ev.Timestamp.IsZero())
	}

	require.Len(t, byType[EventTypeStore], 3)
	require.Len(t, byType[EventTypeHit], 1)
	require.Equal(t, "a", byType[EventTypeHit][0].Key)
	require.Equal(t, tierMain, byType[EventTypeHit][0].Tier)
	require.Len(t, byType[EventTypeEviction], 1)
	require.Equal(t, "b", byType[EventTypeEviction][0].Key)
	require.Len(t, byType[EventTypeDelete], 1)
	require.Equal(t, "a", byType[EventTypeDelete][0].Key)
	require.Len(t, byType[EventTypeClear], 1)
}

func TestCacheExpirationEvent(t *testing.T) {
	cache := newTestCache(t)

	var mu sync.Mutex
	var expired []string
	cache.OnEvent(func(ev Event[string]) {
		if ev.Type != EventTypeExpiration {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, ev.Key)
	})

	cache.Store("gone", "value", WithTTL[string](40*time.Millisecond))
	time.Sleep(80 * time.Millisecond)
	cache.Get("gone", "")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"gone"}, expired)
}

func TestCacheWorkloadContext(t *testing.T) {
	type tabContext struct {
		Tab string
	}
	cache, err := New[string, string, tabContext](
		WithOptimizeInterval[string, string, tabContext](0),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, cache.Destroy()) }()

	cache.Store("doc", "content", WithContext[tabContext](tabContext{Tab: "editor"}))
	value, ok := cache.Get("doc", tabContext{Tab: "editor"})
	require.True(t, ok)
	require.Equal(t, "content", value)

	// The zero context is the "no context" marker and still resolves
	value, ok = cache.Get("doc", tabContext{})
	require.True(t, ok)
	require.Equal(t, "content", value)
}

func TestCacheDestroy(t *testing.T) {
	cache, err := New[string, string, string]()
	require.NoError(t, err)

	cache.Store("a", "1")
	require.NoError(t, cache.Destroy())

	// Every operation is a no-op once destroyed
	_, ok := cache.Get("a", "")
	require.False(t, ok)
	cache.Store("b", "2")
	require.Equal(t, 0, cache.Len())
	require.False(t, cache.Has("a"))
	require.False(t, cache.Pin("a"))
	require.False(t, cache.Unpin("a"))
	cache.Delete("a")
	cache.Clear()
	cache.Optimize()
	require.Equal(t, 0, cache.PrefetchLen())

	_, err = cache.Serialize()
	require.Error(t, err)
	require.True(t, cacheerrors.IsCacheClosed(err))

	err = cache.Deserialize([]byte("{}"))
	require.Error(t, err)
	require.True(t, cacheerrors.IsCacheClosed(err))

	// Destroy is idempotent
	require.NoError(t, cache.Destroy())
}

func TestCacheOptimizeTicker(t *testing.T) {
	cache := newTestCache(t, WithOptimizeInterval[string, string, string](30*time.Millisecond))

	cache.Store("short", "value", WithTTL[string](20*time.Millisecond))
	require.Eventually(t, func() bool {
		return cache.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int64(1), cache.Analytics().Expirations)
}

func TestCacheThermalAnalytics(t *testing.T) {
	cache := newTestCache(t, WithThermalConfig[string, string, string](thermal.Config{
		InitialTemperature: 20,
		HeatingRate:        1.5,
		CoolingRate:        0.5,
		ThrottleThreshold:  40,
		MaxTemperature:     100,
	}))

	start := cache.Analytics().Thermal.Temperature
	require.InDelta(t, 20, start, 0.0001)

	// Three accesses at 1.5x each push past the threshold
	cache.Store("a", "1")
	cache.Get("a", "")
	cache.Get("a", "")

	hot := cache.Analytics().Thermal
	require.Greater(t, hot.Temperature, 40.0)
	require.True(t, hot.Throttling)

	cache.Optimize()
	cache.Optimize()
	cooled := cache.Analytics().Thermal
	require.Less(t, cooled.Temperature, 40.0)
	require.False(t, cooled.Throttling)
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, WithMaxSize[string, string, string](100))

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i)
				cache.Store(key, "value")
				cache.Get(key, "")
				if i%10 == 0 {
					cache.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	// Concurrent writers never push the main tier past its maximum
	require.LessOrEqual(t, cache.Len(), 100)
	require.NotZero(t, cache.Analytics().Counters.Hits)
}

func TestNewValidation(t *testing.T) {
	t.Run("Invalid Max Size", func(t *testing.T) {
		_, err := New[string, string, string](WithMaxSize[string, string, string](0))
		require.Error(t, err)
		require.True(t, errors.Is(err, cacheerrors.ErrInvalidSize))
	})

	t.Run("Invalid Evict Target", func(t *testing.T) {
		for _, target := range []float64{0, -0.5, 1.5} {
			_, err := New[string, string, string](WithEvictTarget[string, string, string](target))
			require.Error(t, err)
			require.True(t, errors.Is(err, cacheerrors.ErrInvalidConfig))
		}
	})

	t.Run("Invalid Prediction Threshold", func(t *testing.T) {
		_, err := New[string, string, string](WithPredictionThreshold[string, string, string](-0.1))
		require.Error(t, err)
		require.True(t, errors.Is(err, cacheerrors.ErrInvalidConfig))
	})

	t.Run("Unknown Compression Algorithm", func(t *testing.T) {
		_, err := New[string, string, string](WithCompressionAlgorithm[string, string, string]("zstd"))
		require.Error(t, err)
		require.True(t, errors.Is(err, cacheerrors.ErrInvalidConfig))
	})

	t.Run("Invalid Thermal Config", func(t *testing.T) {
		_, err := New[string, string, string](WithThermalConfig[string, string, string](thermal.Config{
			InitialTemperature: 20,
			HeatingRate:        0.5,
			CoolingRate:        0.95,
			ThrottleThreshold:  80,
			MaxTemperature:     100,
		}))
		require.Error(t, err)
	})
}
