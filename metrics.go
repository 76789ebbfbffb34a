package pointgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics from the builder.
// Implement it to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordInsertBatch is called after each worker batch: the number
	// of points inserted and the time the batch took.
	RecordInsertBatch(count int, duration time.Duration)

	// RecordClip is called after each pruner clip + purge cycle.
	RecordClip(duration time.Duration)

	// RecordCacheInfo is called with each latched cache snapshot:
	// handles alive, chunks reanimated, and chunks serialized since
	// the previous snapshot.
	RecordCacheInfo(alive, read, written uint64)
}

// NoopMetricsCollector is a no-op MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsertBatch(int, time.Duration)   {}
func (NoopMetricsCollector) RecordClip(time.Duration)               {}
func (NoopMetricsCollector) RecordCacheInfo(uint64, uint64, uint64) {}

// BasicMetricsCollector keeps simple in-memory counters. Useful for
// debugging without external dependencies.
type BasicMetricsCollector struct {
	BatchCount      atomic.Int64
	PointsInserted  atomic.Int64
	InsertNanos     atomic.Int64
	ClipCount       atomic.Int64
	ClipNanos       atomic.Int64
	ChunksRead      atomic.Int64
	ChunksWritten   atomic.Int64
	LastAliveChunks atomic.Int64
}

// RecordInsertBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsertBatch(count int, duration time.Duration) {
	b.BatchCount.Add(1)
	b.PointsInserted.Add(int64(count))
	b.InsertNanos.Add(duration.Nanoseconds())
}

// RecordClip implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClip(duration time.Duration) {
	b.ClipCount.Add(1)
	b.ClipNanos.Add(duration.Nanoseconds())
}

// RecordCacheInfo implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheInfo(alive, read, written uint64) {
	b.LastAliveChunks.Store(int64(alive))
	b.ChunksRead.Add(int64(read))
	b.ChunksWritten.Add(int64(written))
}
