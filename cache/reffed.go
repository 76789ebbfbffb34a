package cache

import (
	"github.com/hupe1980/pointgo/chunk"
	"github.com/hupe1980/pointgo/geo"
	"github.com/hupe1980/pointgo/internal/spin"
)

// reffedChunk is the cache's atomic unit: a reference count and an
// optional resident chunk, guarded by one spinlock. The resident is
// absent between serialization-reset and erasure, and while a
// reanimation is materializing it.
//
// All methods except the lock itself require spin to be held.
type reffedChunk struct {
	spin spin.Lock

	refs     uint64
	resident *chunk.Chunk
}

// newReffedChunk creates a handle with a fresh empty resident and no
// refs yet.
func newReffedChunk(ck geo.ChunkKey, span uint64, comp chunk.Compression) *reffedChunk {
	return &reffedChunk{resident: chunk.New(ck, span, comp)}
}

// add increments the reference count.
func (r *reffedChunk) add() { r.refs++ }

// del decrements the reference count and reports whether holders
// remain.
func (r *reffedChunk) del() bool {
	if r.refs == 0 {
		panic("cache: del on chunk with no refs")
	}
	r.refs--
	return r.refs > 0
}

// count returns the reference count.
func (r *reffedChunk) count() uint64 { return r.refs }

// exists reports whether a resident is materialized.
func (r *reffedChunk) exists() bool { return r.resident != nil }

// chunk returns the resident.
func (r *reffedChunk) chunk() *chunk.Chunk {
	if r.resident == nil {
		panic("cache: no resident chunk")
	}
	return r.resident
}

// assign materializes an empty resident for reanimation.
func (r *reffedChunk) assign(ck geo.ChunkKey, span uint64, comp chunk.Compression) {
	if r.resident != nil {
		panic("cache: assign over live resident")
	}
	r.resident = chunk.New(ck, span, comp)
}

// reset drops the resident after serialization.
func (r *reffedChunk) reset() {
	if r.refs != 0 {
		panic("cache: reset with live refs")
	}
	if r.resident == nil {
		panic("cache: reset without resident")
	}
	r.resident = nil
}
