package tier

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func liveEntry(value string) *Entry[string] {
	now := time.Now()
	return &Entry[string]{
		Value:          value,
		OriginalSize:   len(value),
		CompressedSize: len(value),
		Created:        now,
		LastAccess:     now,
		Expires:        now.Add(time.Hour),
		Priority:       1.0,
		TTL:            time.Hour,
	}
}

func expiredEntry(value string) *Entry[string] {
	e := liveEntry(value)
	e.Expires = time.Now().Add(-time.Second)
	return e
}

func TestTierPutGet(t *testing.T) {
	tr := New[string, string]("main")
	require.Equal(t, "main", tr.Name())

	tr.Put("a", liveEntry("value-a"))

	entry, outcome := tr.Get("a")
	require.Equal(t, Hit, outcome)
	require.Equal(t, "value-a", entry.Value)
	require.Equal(t, int64(1), entry.AccessCount)

	_, outcome = tr.Get("missing")
	require.Equal(t, Miss, outcome)
}

func TestTierGetTouchesEntry(t *testing.T) {
	tr := New[string, string]("main")
	e := liveEntry("v")
	before := e.LastAccess
	tr.Put("a", e)

	time.Sleep(5 * time.Millisecond)
	entry, outcome := tr.Get("a")
	require.Equal(t, Hit, outcome)
	require.True(t, entry.LastAccess.After(before))

	entry, _ = tr.Get("a")
	require.Equal(t, int64(2), entry.AccessCount)
}

func TestTierGetExpiredDeletes(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("a", expiredEntry("stale"))

	_, outcome := tr.Get("a")
	require.Equal(t, Expired, outcome)

	// the expired entry was removed on first sight
	_, outcome = tr.Get("a")
	require.Equal(t, Miss, outcome)
	require.Zero(t, tr.Len())
}

func TestTierPeek(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("a", liveEntry("v"))
	tr.Put("b", expiredEntry("stale"))

	entry, ok := tr.Peek("a")
	require.True(t, ok)
	require.Zero(t, entry.AccessCount)

	// expired entries are absent through Peek but stay for the sweep
	_, ok = tr.Peek("b")
	require.False(t, ok)
	require.Equal(t, 2, tr.Len())

	_, ok = tr.Peek("missing")
	require.False(t, ok)
}

func TestTierContains(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("a", liveEntry("v"))
	tr.Put("b", expiredEntry("stale"))

	require.True(t, tr.Contains("a"))
	// expired but not yet swept still occupies its slot
	require.True(t, tr.Contains("b"))
	require.False(t, tr.Contains("missing"))
}

func TestTierTake(t *testing.T) {
	tr := New[string, string]("prefetch")
	tr.Put("a", liveEntry("v"))

	entry, ok := tr.Take("a")
	require.True(t, ok)
	require.Equal(t, "v", entry.Value)
	require.Zero(t, tr.Len())

	_, ok = tr.Take("a")
	require.False(t, ok)

	tr.Put("b", expiredEntry("stale"))
	_, ok = tr.Take("b")
	require.False(t, ok)
	require.Zero(t, tr.Len())
}

func TestTierDeleteClear(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("a", liveEntry("v1"))
	tr.Put("b", liveEntry("v2"))

	require.True(t, tr.Delete("a"))
	require.False(t, tr.Delete("a"))
	require.Equal(t, 1, tr.Len())

	tr.Put("c", liveEntry("v3"))
	require.Equal(t, 2, tr.Clear())
	require.Zero(t, tr.Len())
}

func TestTierKeysInsertionOrder(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("b", liveEntry("v1"))
	tr.Put("a", liveEntry("v2"))
	tr.Put("c", liveEntry("v3"))

	require.Equal(t, []string{"b", "a", "c"}, tr.Keys())

	// replacement ranks as a fresh insertion
	tr.Put("b", liveEntry("v4"))
	require.Equal(t, []string{"a", "c", "b"}, tr.Keys())
}

func TestTierPinUnpin(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("a", liveEntry("v"))

	require.True(t, tr.Pin("a"))
	entry, _ := tr.Peek("a")
	require.True(t, entry.Pinned)

	require.True(t, tr.Unpin("a"))
	entry, _ = tr.Peek("a")
	require.False(t, entry.Pinned)

	require.False(t, tr.Pin("missing"))

	tr.Put("stale", expiredEntry("v"))
	require.False(t, tr.Pin("stale"))
}

func TestTierCandidates(t *testing.T) {
	tr := New[string, string]("main")

	e := liveEntry("payload")
	e.AccessCount = 10
	e.CompressedSize = 512
	tr.Put("a", e)
	tr.Put("b", liveEntry("other"))
	tr.Pin("b")

	candidates := tr.Candidates()
	require.Len(t, candidates, 2)

	byKey := make(map[string]int)
	for i, c := range candidates {
		byKey[c.Key] = i
	}
	a := candidates[byKey["a"]]
	require.Equal(t, int64(10), a.AccessCount)
	require.Equal(t, 512, a.CompressedSize)
	require.InDelta(t, 1.5, a.Priority, 1e-9)
	require.False(t, a.Pinned)

	b := candidates[byKey["b"]]
	require.True(t, b.Pinned)
	require.Less(t, a.Seq, b.Seq)
}

func TestEffectivePriorityCapped(t *testing.T) {
	e := &Entry[string]{Priority: 2.0, AccessCount: 100}
	require.InDelta(t, 3.0, e.EffectivePriority(), 1e-9)

	e.AccessCount = 4
	require.InDelta(t, 2.2, e.EffectivePriority(), 1e-9)
}

func TestTierPruneExpired(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("live", liveEntry("v"))
	tr.Put("stale1", expiredEntry("v"))
	tr.Put("stale2", expiredEntry("v"))

	removed := tr.PruneExpired()
	require.ElementsMatch(t, []string{"stale1", "stale2"}, removed)
	require.Equal(t, 1, tr.Len())

	require.Empty(t, tr.PruneExpired())
}

func TestTierDump(t *testing.T) {
	tr := New[string, string]("main")
	tr.Put("b", liveEntry("v1"))
	tr.Put("a", liveEntry("v2"))
	tr.Put("stale", expiredEntry("v3"))

	dump := tr.Dump()
	require.Len(t, dump, 2)
	require.Equal(t, "b", dump[0].Key)
	require.Equal(t, "a", dump[1].Key)

	// dumped entries are copies
	dump[0].Entry.Value = "mutated"
	entry, _ := tr.Peek("b")
	require.Equal(t, "v1", entry.Value)
}

func TestTierTotalSizes(t *testing.T) {
	tr := New[string, string]("main")

	e1 := liveEntry("v")
	e1.OriginalSize = 1000
	e1.CompressedSize = 400
	tr.Put("a", e1)

	e2 := liveEntry("v")
	e2.OriginalSize = 500
	e2.CompressedSize = 500
	tr.Put("b", e2)

	stale := expiredEntry("v")
	stale.OriginalSize = 9999
	stale.CompressedSize = 9999
	tr.Put("c", stale)

	original, resident := tr.TotalSizes()
	require.Equal(t, int64(1500), original)
	require.Equal(t, int64(900), resident)
}

func TestTierConcurrentAccess(t *testing.T) {
	tr := New[string, string]("main")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				tr.Put(key, liveEntry("v"))
				tr.Get(key)
				tr.Peek(key)
				tr.Candidates()
				if j%10 == 0 {
					tr.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 8*100-8*10, tr.Len())
}
