package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/btree"
	"github.com/hupe1980/pointgo/blobstore"
	"github.com/hupe1980/pointgo/chunk"
	"github.com/hupe1980/pointgo/geo"
	"github.com/hupe1980/pointgo/hierarchy"
	"github.com/hupe1980/pointgo/internal/pool"
	"github.com/hupe1980/pointgo/internal/spin"
)

// Options configures optional cache behavior.
type Options struct {
	// Span is the cell-grid edge length of new chunks.
	Span uint64
	// Compression selects the chunk blob codec.
	Compression chunk.Compression
	// Logger receives serialization failures. Defaults to discard.
	Logger *slog.Logger
}

// DefaultOptions are the options applied before any overrides.
var DefaultOptions = Options{
	Span:        chunk.DefaultSpan,
	Compression: chunk.CompressionZstd,
}

// ChunkCache coordinates every chunk the build has in flight. See the
// package comment for the locking protocol.
type ChunkCache struct {
	hier      *hierarchy.Hierarchy
	pool      *pool.Pool
	out, tmp  blobstore.Endpoint
	cacheSize uint64

	span uint64
	comp chunk.Compression
	log  *slog.Logger

	// One slice per depth: position to handle, each guarded by the
	// spin of the same index.
	slices     [geo.MaxDepth]map[geo.Xyz]*reffedChunk
	sliceSpins [geo.MaxDepth]spin.Lock

	// Zero-ref chunks still holding residents, ordered so purge can
	// evict deepest-first.
	owned     *btree.BTreeG[geo.Dxyz]
	ownedSpin spin.Lock

	infoSpin spin.Lock
	info     Info

	errSpin  spin.Lock
	firstErr error
}

// New creates a cache writing through tmp to out, evicting down to
// cacheSize owned chunks on purge. Serialization runs on ioPool; the
// caller joins it via Close.
func New(
	hier *hierarchy.Hierarchy,
	ioPool *pool.Pool,
	out, tmp blobstore.Endpoint,
	cacheSize uint64,
	optFns ...func(o *Options),
) *ChunkCache {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	cc := &ChunkCache{
		hier:      hier,
		pool:      ioPool,
		out:       out,
		tmp:       tmp,
		cacheSize: cacheSize,
		span:      opts.Span,
		comp:      opts.Compression,
		log:       opts.Logger,
		owned:     btree.NewG(2, geo.Dxyz.Less),
	}
	for depth := range cc.slices {
		cc.slices[depth] = make(map[geo.Xyz]*reffedChunk)
	}
	return cc
}

// CacheSize returns the owned-set capacity purge aims for.
func (cc *ChunkCache) CacheSize() uint64 { return cc.cacheSize }

// Insert places the voxel into the subtree rooted at ck, descending
// until a chunk accepts it. key tracks the descent and must sit at
// ck's node on entry. Safe for concurrent callers with independent
// pruners.
func (cc *ChunkCache) Insert(ctx context.Context, v *geo.Voxel, key *geo.Key, ck geo.ChunkKey, pr *Pruner) error {
	// Single-threaded fast path first.
	ch := pr.Get(ck)

	// Otherwise make sure the chunk is resident and pinned.
	if ch == nil {
		var err error
		if ch, err = cc.addRef(ctx, ck, pr); err != nil {
			return err
		}
	}

	if ch.Insert(v, key) {
		return nil
	}

	// Full at this depth: descend toward the point.
	key.Step(v.Point)
	dir := geo.Direction(ck.Bounds().Mid(), v.Point)
	return cc.Insert(ctx, v, key, ch.ChildAt(dir), pr)
}

// addRef is a worker's first touch of a chunk this batch: find or
// create the handle, add one ref, register the resident in the pruner,
// and reanimate from remote storage if the resident is gone.
func (cc *ChunkCache) addRef(ctx context.Context, ck geo.ChunkKey, pr *Pruner) (*chunk.Chunk, error) {
	depth := ck.Depth()
	if depth >= geo.MaxDepth {
		panic(fmt.Sprintf("cache: depth %d exceeds max %d", depth, geo.MaxDepth))
	}

	sliceSpin := &cc.sliceSpins[depth]
	sliceSpin.Lock()
	slice := cc.slices[depth]

	if ref, ok := slice[ck.Position()]; ok {
		// A handle exists. The resident may not: serialization and
		// erasure run asynchronously and we may have caught the gap.
		ref.spin.Lock()
		ref.add()
		sliceSpin.Unlock()

		if !ref.exists() {
			if ref.count() != 1 {
				panic("cache: reanimation with concurrent holders")
			}

			// Serialized but not yet erased. Rebuild the resident from
			// its remote source; our ref keeps the slot from erasure.
			ref.assign(ck, cc.span, cc.comp)
			cc.bumpRead()

			// The pruner entry must exist before the blocking load: a
			// concurrent inserter has to find our pointer rather than
			// calling addRef and parking on the chunk lock we hold.
			pr.Set(ck, ref.chunk())

			np := cc.hier.Get(ck.Dxyz())
			if np == 0 {
				panic(fmt.Sprintf("cache: chunk %s has no remote content to reanimate", ck.Dxyz()))
			}
			if err := ref.chunk().Load(ctx, cc.out, cc.tmp, np); err != nil {
				ref.spin.Unlock()
				return nil, err
			}
		} else {
			pr.Set(ck, ref.chunk())
		}

		resident := ref.chunk()
		ref.spin.Unlock()

		// If we reclaimed a chunk sitting in the eviction pool, take
		// it back out: it is communally owned again. Owned before
		// chunk is safe here; no slice lock is held.
		cc.ownedSpin.Lock()
		if cc.owned.Has(ck.Dxyz()) {
			ref.spin.Lock()
			if ref.count() <= 1 {
				panic("cache: reclaim lost its own ref")
			}
			ref.del()
			cc.owned.Delete(ck.Dxyz())
			ref.spin.Unlock()
		}
		cc.ownedSpin.Unlock()

		return resident, nil
	}

	// No handle: create one.
	ref := newReffedChunk(ck, cc.span, cc.comp)
	slice[ck.Position()] = ref
	cc.bumpAlive(1)

	// Still holding the slice lock, so the chunk lock is uncontended
	// and nobody can reach the handle until we've added our ref.
	ref.spin.Lock()
	if ref.count() != 0 || !ref.exists() {
		panic("cache: fresh handle in impossible state")
	}
	ref.add()
	pr.Set(ck, ref.chunk())
	sliceSpin.Unlock()

	// A resumed build may have serialized this chunk in a previous
	// process; the hierarchy is the source of truth for that.
	if np := cc.hier.Get(ck.Dxyz()); np > 0 {
		cc.bumpRead()
		if err := ref.chunk().Load(ctx, cc.out, cc.tmp, np); err != nil {
			ref.spin.Unlock()
			return nil, err
		}
	}

	resident := ref.chunk()
	ref.spin.Unlock()
	return resident, nil
}

// Prune releases a pruner's refs for one depth. Chunks whose count
// drops to zero are not freed: the owned set takes over their ref so a
// near-future reclaim costs no I/O.
func (cc *ChunkCache) Prune(depth uint64, stale map[geo.Xyz]*chunk.Chunk) {
	if len(stale) == 0 {
		return
	}

	sliceSpin := &cc.sliceSpins[depth]
	sliceSpin.Lock()
	slice := cc.slices[depth]

	for pos := range stale {
		ref, ok := slice[pos]
		if !ok {
			panic(fmt.Sprintf("cache: pruning unknown chunk %d-%s", depth, pos))
		}

		ref.spin.Lock()
		if !ref.del() {
			// Last holder. Hand the ref to the owned set instead of
			// erasing.
			ref.add()

			ref.spin.Unlock()
			sliceSpin.Unlock()

			d := geo.Dxyz{Depth: depth, Xyz: pos}
			cc.ownedSpin.Lock()
			if cc.owned.Has(d) {
				panic(fmt.Sprintf("cache: chunk %s already owned", d))
			}
			cc.owned.ReplaceOrInsert(d)
			cc.ownedSpin.Unlock()

			sliceSpin.Lock()
		} else {
			ref.spin.Unlock()
		}
	}
	sliceSpin.Unlock()
}

// Purge evicts down to the configured cache size. Drivers call it
// after each work batch.
func (cc *ChunkCache) Purge() {
	cc.MaybePurge(cc.cacheSize)
}

// MaybePurge evicts owned chunks, deepest first, until at most
// maxCacheSize remain. Purging with zero is the shutdown path: every
// owned chunk is scheduled for serialization.
func (cc *ChunkCache) MaybePurge(maxCacheSize uint64) {
	cc.ownedSpin.Lock()
	for uint64(cc.owned.Len()) > maxCacheSize {
		d, _ := cc.owned.Max()

		sliceSpin := &cc.sliceSpins[d.Depth]
		sliceSpin.Lock()
		ref, ok := cc.slices[d.Depth][d.Xyz]
		if !ok {
			panic(fmt.Sprintf("cache: owned chunk %s has no slot", d))
		}
		ref.spin.Lock()

		cc.owned.Delete(d)

		if !ref.del() {
			// Unreffed: from here the chunk may be recaptured by an
			// inserter or serialized at any moment. Drop every lock
			// before dispatching; serialization blocks on I/O and must
			// only ever block the pool, not insertion.
			ref.spin.Unlock()
			sliceSpin.Unlock()
			cc.ownedSpin.Unlock()

			cc.pool.Add(func() { cc.maybeSerialize(context.Background(), d) })

			cc.ownedSpin.Lock()
		} else {
			ref.spin.Unlock()
			sliceSpin.Unlock()
		}
	}
	cc.ownedSpin.Unlock()
}

// maybeSerialize writes one chunk and transitions it toward erasure.
// Runs only on the I/O pool. Each early return is a legitimate race
// resolved in favor of whoever got there first.
func (cc *ChunkCache) maybeSerialize(ctx context.Context, d geo.Dxyz) {
	sliceSpin := &cc.sliceSpins[d.Depth]
	sliceSpin.Lock()
	ref, ok := cc.slices[d.Depth][d.Xyz]

	// Queued, reclaimed, re-queued, and the first task already ran to
	// erasure: this is the duplicate, and it no-ops.
	if !ok {
		sliceSpin.Unlock()
		return
	}

	ref.spin.Lock()

	// Reclaimed by an inserter before we ran.
	if ref.count() > 0 {
		ref.spin.Unlock()
		sliceSpin.Unlock()
		return
	}

	// The duplicate-queue case again, caught mid-flight: the first
	// task serialized and reset while we waited on the chunk lock and
	// is now reacquiring locks to erase. Get out of its way.
	if !ref.exists() {
		ref.spin.Unlock()
		sliceSpin.Unlock()
		return
	}

	// Both locks held, chunk live and unreffed: we serialize it. The
	// I/O is slow, so keep only the chunk lock; anyone touching this
	// chunk waits on it, while the rest of the slice stays available.
	sliceSpin.Unlock()

	cc.bumpWritten()

	np, err := ref.chunk().Save(ctx, cc.out, cc.tmp)
	if err != nil {
		// Leave the resident in place; the hierarchy was not updated,
		// so no state was lost. The error surfaces at Close.
		cc.fail(d, err)
		ref.spin.Unlock()
		return
	}
	if np == 0 {
		panic(fmt.Sprintf("cache: chunk %s serialized empty", d))
	}
	cc.hier.Set(d, np)

	// Can't erase the slot here: without the slice lock someone may be
	// parked on this chunk lock. Drop the resident and reacquire both
	// locks to attempt the erase.
	ref.reset()
	ref.spin.Unlock()

	cc.maybeErase(d)
}

// maybeErase removes the slot if nobody resurrected it.
func (cc *ChunkCache) maybeErase(d geo.Dxyz) {
	sliceSpin := &cc.sliceSpins[d.Depth]
	sliceSpin.Lock()
	ref, ok := cc.slices[d.Depth][d.Xyz]
	if !ok {
		sliceSpin.Unlock()
		return
	}

	ref.spin.Lock()
	if ref.count() > 0 || ref.exists() {
		ref.spin.Unlock()
		sliceSpin.Unlock()
		return
	}

	// Both locks held: nobody is waiting on this chunk. The handle
	// outlives the slot under GC, so unlocking after the delete is
	// safe.
	delete(cc.slices[d.Depth], d.Xyz)
	ref.spin.Unlock()

	cc.bumpAlive(-1)
	sliceSpin.Unlock()
}

// Close flushes and verifies the cache: purge everything, join the
// I/O pool, and check that every slice drained. Every pruner must be
// clipped first.
func (cc *ChunkCache) Close() error {
	cc.MaybePurge(0)
	cc.pool.Join()

	if err := cc.Err(); err != nil {
		return err
	}

	for depth := range cc.slices {
		cc.sliceSpins[depth].Lock()
		n := len(cc.slices[depth])
		cc.sliceSpins[depth].Unlock()
		if n != 0 {
			panic(fmt.Sprintf("cache: %d chunks leaked at depth %d", n, depth))
		}
	}
	cc.infoSpin.Lock()
	alive := cc.info.Alive
	cc.infoSpin.Unlock()
	if alive != 0 {
		panic(fmt.Sprintf("cache: %d handles alive after close", alive))
	}
	return nil
}

// Err returns the first serialization failure, if any.
func (cc *ChunkCache) Err() error {
	cc.errSpin.Lock()
	defer cc.errSpin.Unlock()
	return cc.firstErr
}

func (cc *ChunkCache) fail(d geo.Dxyz, err error) {
	cc.log.Error("chunk serialization failed", "dxyz", d.String(), "err", err)

	cc.errSpin.Lock()
	if cc.firstErr == nil {
		cc.firstErr = fmt.Errorf("cache: serialize %s: %w", d, err)
	}
	cc.errSpin.Unlock()
}
