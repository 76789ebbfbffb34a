package cache

import (
	"github.com/hupe1980/pointgo/chunk"
	"github.com/hupe1980/pointgo/geo"
)

// Pruner is a worker's private fast path into the cache: a per-depth
// map from chunk position to the resident pointer of a chunk the
// worker holds a ref on. Get costs no locks at all.
//
// Every pointer corresponds to exactly one ref this worker added via
// the cache. Clip releases them all; a pruner is good for one work
// batch and must be clipped before the worker moves on or the cache
// shuts down.
type Pruner struct {
	cache *ChunkCache
	stale [geo.MaxDepth]map[geo.Xyz]*chunk.Chunk
}

// NewPruner creates a pruner bound to the cache.
func (cc *ChunkCache) NewPruner() *Pruner {
	return &Pruner{cache: cc}
}

// Get returns the pinned resident for ck, nil if this worker hasn't
// touched it this batch.
func (p *Pruner) Get(ck geo.ChunkKey) *chunk.Chunk {
	m := p.stale[ck.Depth()]
	if m == nil {
		return nil
	}
	return m[ck.Position()]
}

// Set records the pinned resident for ck. Called by the cache while it
// holds the chunk lock; the pointer stays valid until Clip because the
// ref it rides on is only released there.
func (p *Pruner) Set(ck geo.ChunkKey, c *chunk.Chunk) {
	depth := ck.Depth()
	if p.stale[depth] == nil {
		p.stale[depth] = make(map[geo.Xyz]*chunk.Chunk)
	}
	p.stale[depth][ck.Position()] = c
}

// Clip releases every ref this pruner holds and resets it for the next
// batch.
func (p *Pruner) Clip() {
	for depth, stale := range p.stale {
		if len(stale) == 0 {
			continue
		}
		p.cache.Prune(uint64(depth), stale)
		p.stale[depth] = nil
	}
}
