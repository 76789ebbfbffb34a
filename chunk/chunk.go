// Package chunk implements the leaf-level container of the octree: a
// bounded cell grid holding at most one voxel per cell at its depth.
// A voxel whose cell is already occupied overflows to the next depth;
// resolving where it goes is the caller's job.
//
// Chunks persist themselves to two blob endpoints: writes stage to the
// temporary endpoint before publishing to the output endpoint, and
// reads fall back to the stage if the output copy is missing.
package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/pointgo/blobstore"
	"github.com/hupe1980/pointgo/geo"
	"github.com/hupe1980/pointgo/internal/spin"
)

// DefaultSpan is the default cell-grid edge length.
const DefaultSpan = 128

// Chunk is one node of the octree. Insert is safe for concurrent
// callers; Save and Load are not, and run only while the cache holds
// the chunk's handle lock with no other holders.
type Chunk struct {
	key  geo.ChunkKey
	span uint64
	comp Compression

	mu    spin.Lock
	cells map[uint64]geo.Voxel
}

// New creates an empty chunk for the given key. span is the cell-grid
// edge length; comp selects the blob codec.
func New(key geo.ChunkKey, span uint64, comp Compression) *Chunk {
	if span == 0 {
		span = DefaultSpan
	}
	return &Chunk{
		key:   key,
		span:  span,
		comp:  comp,
		cells: make(map[uint64]geo.Voxel),
	}
}

// Key returns the chunk's identity.
func (c *Chunk) Key() geo.ChunkKey { return c.key }

// ChildAt returns the key of the child chunk in direction d.
func (c *Chunk) ChildAt(d geo.Dir) geo.ChunkKey { return c.key.Child(d) }

// Points returns the number of voxels currently resident.
func (c *Chunk) Points() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.cells))
}

// Each calls fn for every resident voxel.
func (c *Chunk) Each(fn func(v geo.Voxel)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.cells {
		fn(v)
	}
}

// Insert places the voxel into its cell. It returns false when the
// cell is already occupied at this depth, meaning the voxel must
// descend. That is the only false return.
func (c *Chunk) Insert(v *geo.Voxel, _ *geo.Key) bool {
	cell := c.cellOf(v.Point)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, taken := c.cells[cell]; taken {
		return false
	}
	c.cells[cell] = *v
	return true
}

// cellOf maps a point to its grid cell within the chunk bounds.
func (c *Chunk) cellOf(p geo.Point) uint64 {
	b := c.key.Bounds()
	w := b.Width()

	tick := func(v, min float64) uint64 {
		t := uint64((v - min) / w * float64(c.span))
		if t >= c.span {
			t = c.span - 1
		}
		return t
	}
	tx := tick(p.X, b.Min.X)
	ty := tick(p.Y, b.Min.Y)
	tz := tick(p.Z, b.Min.Z)
	return (tx*c.span+ty)*c.span + tz
}

// BlobName returns the blob the chunk persists under.
func BlobName(d geo.Dxyz) string {
	return "data/" + d.String() + ".bin"
}

// Save serializes the chunk through tmp to out and returns the number
// of points written. The staging copy is removed once the output copy
// is durable.
func (c *Chunk) Save(ctx context.Context, out, tmp blobstore.Endpoint) (uint64, error) {
	c.mu.Lock()
	voxels := make([]geo.Voxel, 0, len(c.cells))
	for _, v := range c.cells {
		voxels = append(voxels, v)
	}
	c.mu.Unlock()

	d := c.key.Dxyz()
	data, err := encode(d, voxels, c.comp)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: encode: %w", d, err)
	}

	name := BlobName(d)
	if err := tmp.Put(ctx, name, data); err != nil {
		return 0, fmt.Errorf("chunk %s: stage: %w", d, err)
	}
	if err := out.Put(ctx, name, data); err != nil {
		return 0, fmt.Errorf("chunk %s: publish: %w", d, err)
	}
	if err := tmp.Delete(ctx, name); err != nil {
		return 0, fmt.Errorf("chunk %s: unstage: %w", d, err)
	}
	return uint64(len(voxels)), nil
}

// Load restores np points from out (falling back to tmp) into an empty
// chunk.
func (c *Chunk) Load(ctx context.Context, out, tmp blobstore.Endpoint, np uint64) error {
	d := c.key.Dxyz()
	name := BlobName(d)

	data, err := blobstore.ReadAll(ctx, out, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		data, err = blobstore.ReadAll(ctx, tmp, name)
	}
	if err != nil {
		return fmt.Errorf("chunk %s: read: %w", d, err)
	}

	voxels, err := decode(data, d)
	if err != nil {
		return err
	}
	if uint64(len(voxels)) != np {
		return fmt.Errorf("%w: hierarchy says %d, blob holds %d", ErrCountMismatch, np, len(voxels))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range voxels {
		cell := c.cellOf(v.Point)
		if _, taken := c.cells[cell]; taken {
			return fmt.Errorf("chunk %s: duplicate cell %d in blob", d, cell)
		}
		c.cells[cell] = v
	}
	return nil
}
