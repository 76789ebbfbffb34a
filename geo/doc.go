// Package geo provides the octree geometry primitives used to navigate
// a point-cloud index: points, bounds, octant directions, and the
// depth/position keys that identify chunks within the tree.
//
// All types are plain values. A Key descends the tree one depth at a
// time toward a point; a ChunkKey identifies the chunk a traversal has
// reached. Dxyz is the (depth, x, y, z) identity used everywhere a
// chunk needs a stable name, including blob names and ordering.
package geo
