// Package cache implements the concurrent, write-behind chunk cache at
// the core of the indexer. Ingestion workers descend the octree and
// insert points into resident chunks; chunks nobody holds anymore move
// to an eviction pool, get serialized to remote storage on a separate
// I/O pool, and are reanimated on demand when a worker touches them
// again.
//
// Every chunk handle is reference counted. The lock order is strict:
// slice, then chunk, then owned set, then info counters. The two
// deliberate departures - reclaiming an owned chunk after addRef, and
// the purge loop - take the owned lock first, which is safe because
// neither path holds a slice lock at that point and no path waits on
// the owned lock while holding one.
package cache
