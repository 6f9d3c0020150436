// Package cache provides a generic sharded concurrent map.
//
// # ShardedMap[K, V]
//
// A map split into 16 shards, each guarded by its own RWMutex, designed for
// keys that are written by several goroutines at once. It never evicts.
//
//	m := cache.NewSharded[int, *Entry](cache.IntHasher)
//	if m.InsertIfAbsent(7, e) {
//	    // this goroutine owns key 7
//	}
//
// The conditional operations (InsertIfAbsent, ReplaceIf, RemoveIf) are
// atomic per key. The Try* variants never block and return ErrContended
// when the shard is busy.
//
// # Thread Safety
//
// ShardedMap is safe for concurrent use. It must not be copied after
// creation (it contains mutexes).
package cache
