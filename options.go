package pointgo

import (
	"github.com/hupe1980/pointgo/chunk"
)

type options struct {
	cacheSize        uint64
	span             uint64
	compression      chunk.Compression
	workers          int
	ioWorkers        int
	clipBatch        int
	progressInterval int // seconds; 0 disables the monitor
	readCacheBytes   int64
	readCacheBlock   int64
	ioLimitBytesSec  int
	logger           *Logger
	metrics          MetricsCollector
}

func defaultOptions() options {
	return options{
		cacheSize:   64,
		span:        chunk.DefaultSpan,
		compression: chunk.CompressionZstd,
		workers:     4,
		ioWorkers:   4,
		clipBatch:   4096,
	}
}

// Option configures builder behavior.
type Option func(*options)

// WithCacheSize bounds the eviction pool: the number of unreferenced
// chunks kept resident between purges. It is a chunk count, not a byte
// budget.
func WithCacheSize(n uint64) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithSpan sets the cell-grid edge length of chunks. Larger spans mean
// fewer, larger chunks and a shallower tree.
func WithSpan(span uint64) Option {
	return func(o *options) { o.span = span }
}

// WithCompression selects the chunk blob codec.
func WithCompression(comp chunk.Compression) Option {
	return func(o *options) { o.compression = comp }
}

// WithWorkers sets the number of concurrent ingestion workers.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithIOWorkers sets the size of the serialization pool.
func WithIOWorkers(n int) Option {
	return func(o *options) { o.ioWorkers = n }
}

// WithClipBatch sets how many points a worker inserts before releasing
// its pruner refs and purging the cache.
func WithClipBatch(n int) Option {
	return func(o *options) { o.clipBatch = n }
}

// WithProgressInterval enables the progress monitor, logging pace and
// cache activity every interval seconds.
func WithProgressInterval(seconds int) Option {
	return func(o *options) { o.progressInterval = seconds }
}

// WithReadCache wraps the output endpoint with a block-level LRU so
// reanimation reads of recently evicted chunks skip the round trip.
// capacity is in bytes; blockSize <= 0 picks the default.
func WithReadCache(capacity, blockSize int64) Option {
	return func(o *options) {
		o.readCacheBytes = capacity
		o.readCacheBlock = blockSize
	}
}

// WithIOLimit throttles endpoint traffic to bytesPerSec.
func WithIOLimit(bytesPerSec int) Option {
	return func(o *options) { o.ioLimitBytesSec = bytesPerSec }
}

// WithLogger sets the structured logger. Defaults to no output.
func WithLogger(l *Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) { o.metrics = mc }
}
