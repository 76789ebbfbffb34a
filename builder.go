package pointgo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/pointgo/blobstore"
	"github.com/hupe1980/pointgo/cache"
	"github.com/hupe1980/pointgo/geo"
	"github.com/hupe1980/pointgo/hierarchy"
	lru "github.com/hupe1980/pointgo/internal/cache"
	"github.com/hupe1980/pointgo/internal/pool"
	"github.com/hupe1980/pointgo/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Builder ingests point sources into an octree index persisted at the
// output endpoint. Create one with NewBuilder, feed it with Run (as
// many times as needed), then Close it to flush and persist state.
type Builder struct {
	opts     options
	root     geo.ChunkKey
	hier     *hierarchy.Hierarchy
	manifest *Manifest
	out, tmp blobstore.Endpoint
	cache    *cache.ChunkCache
	log      *Logger
	metrics  MetricsCollector

	inserted atomic.Uint64
	closed   atomic.Bool
}

// NewBuilder creates a builder over the given endpoints and index
// bounds. Hierarchy and manifest state already present at the output
// endpoint is loaded, making the build a resume.
func NewBuilder(ctx context.Context, out, tmp blobstore.Endpoint, bounds geo.Bounds, optFns ...Option) (*Builder, error) {
	if bounds.Max.X <= bounds.Min.X || bounds.Max.Y <= bounds.Min.Y || bounds.Max.Z <= bounds.Min.Z {
		return nil, &ErrInvalidBounds{Bounds: bounds}
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.metrics == nil {
		opts.metrics = NoopMetricsCollector{}
	}
	if opts.workers < 1 {
		opts.workers = 1
	}
	if opts.clipBatch < 1 {
		opts.clipBatch = 1
	}

	if opts.ioLimitBytesSec > 0 {
		rc := resource.NewController(opts.ioLimitBytesSec)
		out = blobstore.NewThrottledStore(out, rc)
		tmp = blobstore.NewThrottledStore(tmp, rc)
	}
	if opts.readCacheBytes > 0 {
		out = blobstore.NewCachingStore(out, lru.NewLRU(opts.readCacheBytes), opts.readCacheBlock)
	}

	hier := hierarchy.New()
	if err := hier.Load(ctx, out); err != nil {
		return nil, err
	}
	manifest := NewManifest()
	if err := manifest.Load(ctx, out); err != nil {
		return nil, err
	}

	b := &Builder{
		opts:     opts,
		root:     geo.RootChunkKey(bounds),
		hier:     hier,
		manifest: manifest,
		out:      out,
		tmp:      tmp,
		log:      opts.logger,
		metrics:  opts.metrics,
	}
	b.cache = cache.New(hier, pool.New(opts.ioWorkers), out, tmp, opts.cacheSize, func(o *cache.Options) {
		o.Span = opts.span
		o.Compression = opts.compression
		o.Logger = opts.logger.Logger
	})

	if n := hier.Len(); n > 0 {
		b.log.Info("resuming build", "chunks", n, "points", hier.TotalPoints(), "sources", manifest.InsertedCount())
	}
	return b, nil
}

// Cache exposes the chunk cache for drivers that run their own
// ingestion loop.
func (b *Builder) Cache() *cache.ChunkCache { return b.cache }

// Hierarchy exposes the hierarchy state.
func (b *Builder) Hierarchy() *hierarchy.Hierarchy { return b.hier }

// Run ingests the sources, fanning them out over the configured number
// of workers. Sources whose origin the manifest marks as ingested are
// skipped. Run may be called repeatedly with new sources.
func (b *Builder) Run(ctx context.Context, sources []Source) error {
	if b.closed.Load() {
		return ErrClosed
	}

	done := make(chan struct{})
	if b.opts.progressInterval > 0 {
		go b.monitor(done)
	}
	defer close(done)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.workers)

	for _, src := range sources {
		if b.manifest.IsInserted(src.Origin()) {
			b.log.Info("skipping ingested source", "origin", src.Origin())
			continue
		}
		g.Go(func() error {
			if err := b.runSource(gctx, src); err != nil {
				return &ErrSourceFailed{Origin: src.Origin(), cause: err}
			}
			b.manifest.MarkInserted(src.Origin())
			b.log.Info("source done", "origin", src.Origin())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return b.cache.Err()
}

// runSource drains one source through a private pruner, releasing refs
// and purging every clip batch.
func (b *Builder) runSource(ctx context.Context, src Source) error {
	pr := b.cache.NewPruner()
	batchStart := time.Now()
	count := 0

	clip := func() {
		start := time.Now()
		pr.Clip()
		b.cache.Purge()
		b.metrics.RecordClip(time.Since(start))
	}

	for {
		v, ok := src.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			clip()
			return err
		}

		key := geo.NewKey(b.root.Bounds())
		if err := b.cache.Insert(ctx, &v, &key, b.root, pr); err != nil {
			clip()
			return err
		}

		count++
		b.inserted.Add(1)
		if count%b.opts.clipBatch == 0 {
			clip()
			b.metrics.RecordInsertBatch(b.opts.clipBatch, time.Since(batchStart))
			batchStart = time.Now()
		}
	}

	clip()
	if rem := count % b.opts.clipBatch; rem > 0 {
		b.metrics.RecordInsertBatch(rem, time.Since(batchStart))
	}
	return nil
}

// monitor logs ingestion pace and cache activity until done closes.
func (b *Builder) monitor(done <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(b.opts.progressInterval) * time.Second)
	defer ticker.Stop()

	start := time.Now()
	var last uint64

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			current := b.inserted.Load()
			info := b.cache.LatchInfo()
			b.metrics.RecordCacheInfo(info.Alive, info.Read, info.Written)

			elapsed := time.Since(start).Seconds()
			b.log.Info("progress",
				"inserted", current,
				"points/sec", uint64(float64(current)/elapsed),
				"interval", current-last,
				"alive", info.Alive,
				"read", info.Read,
				"written", info.Written,
			)
			last = current
		}
	}
}

// Close flushes the cache, verifies it drained, and persists hierarchy
// and manifest state. The builder is unusable afterward.
func (b *Builder) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if err := b.cache.Close(); err != nil {
		return err
	}

	info := b.cache.LatchInfo()
	b.metrics.RecordCacheInfo(info.Alive, info.Read, info.Written)

	if err := b.hier.Save(ctx, b.out); err != nil {
		return err
	}
	if err := b.manifest.Save(ctx, b.out); err != nil {
		return err
	}

	b.log.Info("build complete",
		"points", b.hier.TotalPoints(),
		"chunks", b.hier.Len(),
		"sources", b.manifest.InsertedCount(),
	)
	return nil
}
