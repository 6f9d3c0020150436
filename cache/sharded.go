package cache

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	// DefaultShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	DefaultShardCount = 16

	// shardMask is used for fast shard selection (DefaultShardCount - 1).
	shardMask = DefaultShardCount - 1
)

// ErrContended is returned by the Try* methods when the shard lock for the
// key is held by another goroutine. The operation had no effect.
var ErrContended = errors.New("cache: shard contended")

// Hasher is a function that computes a hash for a key.
// Used by ShardedMap for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// IntHasher computes a hash of an int key using FNV-1a.
func IntHasher(i int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	buf[0] = byte(i)
	buf[1] = byte(i >> 8)
	buf[2] = byte(i >> 16)
	buf[3] = byte(i >> 24)
	buf[4] = byte(i >> 32)
	buf[5] = byte(i >> 40)
	buf[6] = byte(i >> 48)
	buf[7] = byte(i >> 56)
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash (identity hash).
func Uint64Hasher(u uint64) uint64 {
	return u
}

// ShardedMap is a thread-safe, sharded associative map for keys that are
// written from several goroutines at once.
//
// Unlike an LRU cache it never evicts: an entry stays until it is removed
// explicitly or the map is drained. The conditional operations
// (InsertIfAbsent, ReplaceIf, RemoveIf) are atomic per key, which lets
// callers build ownership protocols on top of the map without external
// locking.
//
// The Try* variants never block. They acquire the shard lock with TryLock
// and report ErrContended instead of waiting, so they are safe to call from
// a thread that must not stall.
type ShardedMap[K comparable, V any] struct {
	shards [DefaultShardCount]*mapShard[K, V]
	hasher Hasher[K]

	// Statistics (atomic for zero-allocation reads)
	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	conflicts atomic.Uint64
	contended atomic.Uint64
	removals  atomic.Uint64
}

// mapShard is a single shard of the map.
// Each shard has its own mutex for reduced contention.
type mapShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewSharded creates an empty sharded map.
//
// The hasher function is used to compute hash values for shard selection.
// Use StringHasher, IntHasher, or Uint64Hasher for common key types.
func NewSharded[K comparable, V any](hasher Hasher[K]) *ShardedMap[K, V] {
	m := &ShardedMap[K, V]{hasher: hasher}
	for i := range m.shards {
		m.shards[i] = &mapShard[K, V]{entries: make(map[K]V)}
	}
	return m
}

// getShard returns the shard for a given key.
// Uses bitwise AND for fast modulo (only works with power-of-2 shard count).
func (m *ShardedMap[K, V]) getShard(key K) *mapShard[K, V] {
	return m.shards[m.hasher(key)&shardMask]
}

// Get retrieves a value by key.
// Returns (value, true) if found, (zero, false) otherwise.
func (m *ShardedMap[K, V]) Get(key K) (V, bool) {
	shard := m.getShard(key)

	shard.mu.RLock()
	v, ok := shard.entries[key]
	shard.mu.RUnlock()

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

// TryGet is the non-blocking form of Get.
// It returns ErrContended if the shard is write-locked by another goroutine.
func (m *ShardedMap[K, V]) TryGet(key K) (V, bool, error) {
	shard := m.getShard(key)

	if !shard.mu.TryRLock() {
		m.contended.Add(1)
		var zero V
		return zero, false, ErrContended
	}
	v, ok := shard.entries[key]
	shard.mu.RUnlock()

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok, nil
}

// InsertIfAbsent stores value under key only if the key has no entry.
// Returns true if the value was inserted.
func (m *ShardedMap[K, V]) InsertIfAbsent(key K, value V) bool {
	shard := m.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	return m.insertLocked(shard, key, value)
}

// TryInsertIfAbsent is the non-blocking form of InsertIfAbsent.
// It returns ErrContended if the shard is locked by another goroutine.
func (m *ShardedMap[K, V]) TryInsertIfAbsent(key K, value V) (bool, error) {
	shard := m.getShard(key)

	if !shard.mu.TryLock() {
		m.contended.Add(1)
		return false, ErrContended
	}
	defer shard.mu.Unlock()

	return m.insertLocked(shard, key, value), nil
}

func (m *ShardedMap[K, V]) insertLocked(shard *mapShard[K, V], key K, value V) bool {
	if _, exists := shard.entries[key]; exists {
		m.conflicts.Add(1)
		return false
	}
	shard.entries[key] = value
	m.inserts.Add(1)
	return true
}

// InsertOrReplace stores value under key unconditionally.
// It returns the previous value and whether one was replaced.
func (m *ShardedMap[K, V]) InsertOrReplace(key K, value V) (V, bool) {
	shard := m.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	old, existed := shard.entries[key]
	shard.entries[key] = value
	if !existed {
		m.inserts.Add(1)
	}
	return old, existed
}

// ReplaceIf overwrites the entry for key with value if the key is present
// and match reports true for the current value.
// match is called with the shard lock held and must not call back into the map.
func (m *ShardedMap[K, V]) ReplaceIf(key K, value V, match func(V) bool) bool {
	shard := m.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	cur, ok := shard.entries[key]
	if !ok || !match(cur) {
		return false
	}
	shard.entries[key] = value
	return true
}

// Remove deletes the entry for key and returns the removed value.
func (m *ShardedMap[K, V]) Remove(key K) (V, bool) {
	shard := m.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	v, ok := shard.entries[key]
	if ok {
		delete(shard.entries, key)
		m.removals.Add(1)
	}
	return v, ok
}

// RemoveIf deletes the entry for key if match reports true for its value.
// Returns true if an entry was removed.
func (m *ShardedMap[K, V]) RemoveIf(key K, match func(V) bool) bool {
	shard := m.getShard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	return m.removeIfLocked(shard, key, match)
}

// TryRemoveIf is the non-blocking form of RemoveIf.
// It returns ErrContended if the shard is locked by another goroutine.
func (m *ShardedMap[K, V]) TryRemoveIf(key K, match func(V) bool) (bool, error) {
	shard := m.getShard(key)

	if !shard.mu.TryLock() {
		m.contended.Add(1)
		return false, ErrContended
	}
	defer shard.mu.Unlock()

	return m.removeIfLocked(shard, key, match), nil
}

func (m *ShardedMap[K, V]) removeIfLocked(shard *mapShard[K, V], key K, match func(V) bool) bool {
	cur, ok := shard.entries[key]
	if !ok || !match(cur) {
		return false
	}
	delete(shard.entries, key)
	m.removals.Add(1)
	return true
}

// Range calls fn for every entry until fn returns false.
// Each shard is snapshotted under its read lock and fn runs without any
// lock held, so fn may call back into the map. Entries written concurrently
// may or may not be observed.
func (m *ShardedMap[K, V]) Range(fn func(K, V) bool) {
	type kv struct {
		k K
		v V
	}
	var snapshot []kv
	for _, shard := range m.shards {
		snapshot = snapshot[:0]
		shard.mu.RLock()
		for k, v := range shard.entries {
			snapshot = append(snapshot, kv{k, v})
		}
		shard.mu.RUnlock()

		for _, e := range snapshot {
			if !fn(e.k, e.v) {
				return
			}
		}
	}
}

// Drain removes every entry and calls fn (if non-nil) once for each removed
// entry, after the shard lock has been released. Every entry removed by
// Drain is reported exactly once. Returns the number of removed entries.
func (m *ShardedMap[K, V]) Drain(fn func(K, V)) int {
	total := 0
	for _, shard := range m.shards {
		shard.mu.Lock()
		old := shard.entries
		shard.entries = make(map[K]V)
		shard.mu.Unlock()

		total += len(old)
		m.removals.Add(uint64(len(old)))
		if fn == nil {
			continue
		}
		for k, v := range old {
			fn(k, v)
		}
	}
	return total
}

// Len returns the total number of entries across all shards.
func (m *ShardedMap[K, V]) Len() int {
	total := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}

// ShardLen returns the number of entries in each shard.
// Useful for debugging load distribution.
func (m *ShardedMap[K, V]) ShardLen() [DefaultShardCount]int {
	var lens [DefaultShardCount]int
	for i, shard := range m.shards {
		shard.mu.RLock()
		lens[i] = len(shard.entries)
		shard.mu.RUnlock()
	}
	return lens
}

// Stats returns current map statistics.
// This operation is mostly lock-free (atomic counters).
func (m *ShardedMap[K, V]) Stats() Stats {
	hits := m.hits.Load()
	misses := m.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:       m.Len(),
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Inserts:   m.inserts.Load(),
		Conflicts: m.conflicts.Load(),
		Contended: m.contended.Load(),
		Removals:  m.removals.Load(),
	}
}

// ResetStats resets all statistics counters to zero.
func (m *ShardedMap[K, V]) ResetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
	m.inserts.Store(0)
	m.conflicts.Store(0)
	m.contended.Store(0)
	m.removals.Store(0)
}
