package cache

// Stats holds ShardedMap statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Hits is the number of Get calls that found an entry.
	Hits uint64
	// Misses is the number of Get calls that found nothing.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Inserts is the number of new keys stored.
	Inserts uint64
	// Conflicts counts InsertIfAbsent calls that found the key present.
	Conflicts uint64
	// Contended counts Try* calls that gave up on a locked shard.
	Contended uint64
	// Removals is the number of entries removed, drained ones included.
	Removals uint64
}
