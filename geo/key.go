package geo

import "fmt"

// MaxDepth bounds the octree depth. Positions at depth d fit in d bits
// per axis, so 64 is the natural ceiling.
const MaxDepth = 64

// Xyz is a chunk position within one depth of the tree.
type Xyz struct {
	X, Y, Z uint64
}

func (p Xyz) String() string {
	return fmt.Sprintf("%d-%d-%d", p.X, p.Y, p.Z)
}

// Dxyz uniquely identifies a chunk in the tree: its depth plus its
// position within that depth.
type Dxyz struct {
	Depth uint64
	Xyz
}

// String renders the identity as "d-x-y-z", the stem used for blob
// names and the hierarchy's persisted keys.
func (d Dxyz) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", d.Depth, d.X, d.Y, d.Z)
}

// Less orders identities lexicographically on (depth, x, y, z). The
// owned set's deepest-first eviction depends on this being a total
// order with depth as the leading term.
func (d Dxyz) Less(o Dxyz) bool {
	if d.Depth != o.Depth {
		return d.Depth < o.Depth
	}
	if d.X != o.X {
		return d.X < o.X
	}
	if d.Y != o.Y {
		return d.Y < o.Y
	}
	return d.Z < o.Z
}

// Key tracks a point's descent through the tree: the bounds and
// identity of the node the traversal currently sits at. Step mutates
// the key in place.
type Key struct {
	B Bounds
	D Dxyz
}

// NewKey returns a key at depth zero covering bounds.
func NewKey(bounds Bounds) Key {
	return Key{B: bounds}
}

// Bounds returns the bounds of the current node.
func (k *Key) Bounds() Bounds { return k.B }

// Dxyz returns the identity of the current node.
func (k *Key) Dxyz() Dxyz { return k.D }

// Step descends one depth toward p, narrowing the bounds to the octant
// containing p and updating the position accordingly.
func (k *Key) Step(p Point) {
	d := Direction(k.B.Mid(), p)
	k.B = k.B.Get(d)
	k.D.Depth++
	k.D.X = k.D.X<<1 | uint64(d&1)
	k.D.Y = k.D.Y<<1 | uint64(d>>1&1)
	k.D.Z = k.D.Z<<1 | uint64(d>>2&1)
}

// ChunkKey identifies a chunk: its bounds plus its Dxyz. Unlike Key it
// is never mutated; children are derived with Child.
type ChunkKey struct {
	B Bounds
	D Dxyz
}

// RootChunkKey returns the key of the root chunk covering bounds.
func RootChunkKey(bounds Bounds) ChunkKey {
	return ChunkKey{B: bounds}
}

// Bounds returns the chunk's bounds.
func (ck ChunkKey) Bounds() Bounds { return ck.B }

// Dxyz returns the chunk's identity.
func (ck ChunkKey) Dxyz() Dxyz { return ck.D }

// Depth returns the chunk's depth.
func (ck ChunkKey) Depth() uint64 { return ck.D.Depth }

// Position returns the chunk's position within its depth.
func (ck ChunkKey) Position() Xyz { return ck.D.Xyz }

// Child returns the key of the child chunk in direction d.
func (ck ChunkKey) Child(d Dir) ChunkKey {
	return ChunkKey{
		B: ck.B.Get(d),
		D: Dxyz{
			Depth: ck.D.Depth + 1,
			Xyz: Xyz{
				X: ck.D.X<<1 | uint64(d&1),
				Y: ck.D.Y<<1 | uint64(d>>1&1),
				Z: ck.D.Z<<1 | uint64(d>>2&1),
			},
		},
	}
}
