package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSharded(t *testing.T) {
	m := NewSharded[string, int](StringHasher)
	if m == nil {
		t.Fatal("NewSharded returned nil")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty map, got %d entries", m.Len())
	}
}

func TestShardedMapInsertIfAbsent(t *testing.T) {
	m := NewSharded[int, string](IntHasher)

	if !m.InsertIfAbsent(7, "first") {
		t.Fatal("expected first insert to succeed")
	}
	if m.InsertIfAbsent(7, "second") {
		t.Error("expected second insert for same key to fail")
	}

	val, ok := m.Get(7)
	if !ok || val != "first" {
		t.Errorf("Get(7) = %q, %v; want \"first\", true", val, ok)
	}

	stats := m.Stats()
	if stats.Inserts != 1 || stats.Conflicts != 1 {
		t.Errorf("Inserts=%d Conflicts=%d, want 1 and 1", stats.Inserts, stats.Conflicts)
	}
}

func TestShardedMapTryInsertIfAbsent(t *testing.T) {
	m := NewSharded[int, int](IntHasher)

	inserted, err := m.TryInsertIfAbsent(3, 30)
	if err != nil || !inserted {
		t.Fatalf("TryInsertIfAbsent = %v, %v; want true, nil", inserted, err)
	}

	inserted, err = m.TryInsertIfAbsent(3, 31)
	if err != nil || inserted {
		t.Errorf("TryInsertIfAbsent on existing key = %v, %v; want false, nil", inserted, err)
	}
}

func TestShardedMapTryInsertContended(t *testing.T) {
	m := NewSharded[int, int](IntHasher)

	shard := m.getShard(5)
	shard.mu.Lock()
	inserted, err := m.TryInsertIfAbsent(5, 50)
	shard.mu.Unlock()

	if err != ErrContended {
		t.Fatalf("err = %v, want ErrContended", err)
	}
	if inserted {
		t.Error("contended insert must not report success")
	}
	if _, ok := m.Get(5); ok {
		t.Error("contended insert must not store the value")
	}
	if m.Stats().Contended != 1 {
		t.Errorf("Contended = %d, want 1", m.Stats().Contended)
	}
}

func TestShardedMapTryGet(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	m.InsertIfAbsent(2, 20)

	v, ok, err := m.TryGet(2)
	if err != nil || !ok || v != 20 {
		t.Fatalf("TryGet(2) = %d, %v, %v; want 20, true, nil", v, ok, err)
	}

	shard := m.getShard(2)
	shard.mu.Lock()
	_, ok, err = m.TryGet(2)
	shard.mu.Unlock()
	if err != ErrContended || ok {
		t.Errorf("TryGet on locked shard = %v, %v; want false, ErrContended", ok, err)
	}

	// Readers do not contend with each other.
	shard.mu.RLock()
	_, ok, err = m.TryGet(2)
	shard.mu.RUnlock()
	if err != nil || !ok {
		t.Errorf("TryGet under read lock = %v, %v; want true, nil", ok, err)
	}
}

func TestShardedMapInsertOrReplace(t *testing.T) {
	m := NewSharded[int, int](IntHasher)

	if _, replaced := m.InsertOrReplace(1, 10); replaced {
		t.Error("first InsertOrReplace should not report a replacement")
	}
	old, replaced := m.InsertOrReplace(1, 11)
	if !replaced || old != 10 {
		t.Errorf("InsertOrReplace = %d, %v; want 10, true", old, replaced)
	}
	if v, _ := m.Get(1); v != 11 {
		t.Errorf("Get(1) = %d, want 11", v)
	}
}

func TestShardedMapReplaceIf(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	m.InsertIfAbsent(1, 10)

	if m.ReplaceIf(1, 20, func(cur int) bool { return cur == 99 }) {
		t.Error("ReplaceIf with non-matching predicate should fail")
	}
	if !m.ReplaceIf(1, 20, func(cur int) bool { return cur == 10 }) {
		t.Error("ReplaceIf with matching predicate should succeed")
	}
	if m.ReplaceIf(2, 20, func(int) bool { return true }) {
		t.Error("ReplaceIf on absent key should fail")
	}
	if v, _ := m.Get(1); v != 20 {
		t.Errorf("Get(1) = %d, want 20", v)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (ReplaceIf must not insert)", m.Len())
	}
}

func TestShardedMapRemove(t *testing.T) {
	m := NewSharded[string, int](StringHasher)
	m.InsertIfAbsent("key1", 42)

	v, ok := m.Remove("key1")
	if !ok || v != 42 {
		t.Errorf("Remove = %d, %v; want 42, true", v, ok)
	}
	if _, ok := m.Remove("key1"); ok {
		t.Error("expected second Remove to report nothing removed")
	}
}

func TestShardedMapRemoveIf(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	m.InsertIfAbsent(4, 40)

	if m.RemoveIf(4, func(cur int) bool { return cur != 40 }) {
		t.Error("RemoveIf with non-matching predicate should fail")
	}
	if !m.RemoveIf(4, func(cur int) bool { return cur == 40 }) {
		t.Error("RemoveIf with matching predicate should succeed")
	}
	if _, ok := m.Get(4); ok {
		t.Error("entry should be gone")
	}

	removed, err := m.TryRemoveIf(4, func(int) bool { return true })
	if err != nil || removed {
		t.Errorf("TryRemoveIf on absent key = %v, %v; want false, nil", removed, err)
	}
}

func TestShardedMapTryRemoveIfContended(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	m.InsertIfAbsent(9, 90)

	shard := m.getShard(9)
	shard.mu.RLock()
	removed, err := m.TryRemoveIf(9, func(int) bool { return true })
	shard.mu.RUnlock()

	if err != ErrContended || removed {
		t.Fatalf("TryRemoveIf = %v, %v; want false, ErrContended", removed, err)
	}
	if _, ok := m.Get(9); !ok {
		t.Error("contended removal must leave the entry in place")
	}
}

func TestShardedMapDrain(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	for i := 0; i < 50; i++ {
		m.InsertIfAbsent(i, i*2)
	}

	seen := make(map[int]int)
	n := m.Drain(func(k, v int) {
		seen[k]++
		if v != k*2 {
			t.Errorf("drained %d -> %d, want %d", k, v, k*2)
		}
	})

	if n != 50 {
		t.Errorf("Drain returned %d, want 50", n)
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", m.Len())
	}
	for k, count := range seen {
		if count != 1 {
			t.Errorf("key %d reported %d times, want once", k, count)
		}
	}
	if len(seen) != 50 {
		t.Errorf("Drain reported %d keys, want 50", len(seen))
	}

	// Draining an empty map with a nil callback is allowed.
	if n := m.Drain(nil); n != 0 {
		t.Errorf("Drain on empty map = %d, want 0", n)
	}
}

func TestShardedMapRange(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	for i := 0; i < 20; i++ {
		m.InsertIfAbsent(i, i)
	}

	sum := 0
	m.Range(func(_, v int) bool {
		sum += v
		return true
	})
	if sum != 190 {
		t.Errorf("sum over Range = %d, want 190", sum)
	}

	visits := 0
	m.Range(func(int, int) bool {
		visits++
		return visits < 3
	})
	if visits != 3 {
		t.Errorf("Range visited %d entries after stop, want 3", visits)
	}

	// fn may re-enter the map.
	m.Range(func(k, _ int) bool {
		m.Remove(k)
		return true
	})
	if m.Len() != 0 {
		t.Errorf("Len() = %d after removing inside Range, want 0", m.Len())
	}
}

func TestShardedMapStats(t *testing.T) {
	m := NewSharded[string, int](StringHasher)
	m.InsertIfAbsent("a", 1)
	m.InsertIfAbsent("b", 2)
	m.Get("a")
	m.Get("a")
	m.Get("missing")
	m.Remove("b")

	got := m.Stats()
	want := Stats{
		Len:      1,
		Hits:     2,
		Misses:   1,
		HitRate:  2.0 / 3.0,
		Inserts:  2,
		Removals: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}

	m.ResetStats()
	if diff := cmp.Diff(Stats{Len: 1}, m.Stats()); diff != "" {
		t.Errorf("Stats() after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestShardedMapShardLen(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	for i := 0; i < 100; i++ {
		m.InsertIfAbsent(i, i)
	}

	lens := m.ShardLen()
	total := 0
	for _, l := range lens {
		total += l
	}

	if total != m.Len() {
		t.Errorf("shard lengths sum %d != Len() %d", total, m.Len())
	}
}

func TestShardedMapConcurrentInsertIfAbsent(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	var wg sync.WaitGroup
	var winners [64]atomic.Int32

	// Many goroutines race for the same small key set; each key must have
	// exactly one winner.
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for k := range winners {
				if m.InsertIfAbsent(k, n) {
					winners[k].Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	for k := range winners {
		if got := winners[k].Load(); got != 1 {
			t.Errorf("key %d had %d winners, want 1", k, got)
		}
	}
}

func TestShardedMapConcurrent(t *testing.T) {
	m := NewSharded[int, int](IntHasher)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := n*100 + j
				m.InsertOrReplace(key, key)
				m.Get(key)
				if j%2 == 0 {
					m.RemoveIf(key, func(v int) bool { return v == key })
				}
			}
		}(i)
	}
	wg.Wait()

	if m.Len() != 5000 {
		t.Errorf("Len() = %d, want 5000", m.Len())
	}
}

func TestHashers(t *testing.T) {
	h1 := StringHasher("hello")
	h2 := StringHasher("hello")
	h3 := StringHasher("world")

	if h1 != h2 {
		t.Error("StringHasher not deterministic")
	}
	if h1 == h3 {
		t.Error("StringHasher collision for different strings")
	}

	h4 := IntHasher(42)
	h5 := IntHasher(42)
	h6 := IntHasher(43)

	if h4 != h5 {
		t.Error("IntHasher not deterministic")
	}
	if h4 == h6 {
		t.Error("IntHasher collision for different ints")
	}

	h7 := Uint64Hasher(12345)
	if h7 != 12345 {
		t.Errorf("Uint64Hasher expected identity, got %d", h7)
	}
}
