package pointgo

import "github.com/hupe1980/pointgo/geo"

// Source yields the voxels of one input file or stream. Origin is a
// stable identifier the manifest uses to skip already-ingested sources
// on resume. Next is called from a single worker at a time.
type Source interface {
	Origin() uint32
	Next() (geo.Voxel, bool)
}

// SliceSource adapts an in-memory voxel slice to the Source interface.
type SliceSource struct {
	origin uint32
	voxels []geo.Voxel
	pos    int
}

// NewSliceSource creates a SliceSource over voxels.
func NewSliceSource(origin uint32, voxels []geo.Voxel) *SliceSource {
	return &SliceSource{origin: origin, voxels: voxels}
}

// Origin returns the source identifier.
func (s *SliceSource) Origin() uint32 { return s.origin }

// Next returns the next voxel, false when drained.
func (s *SliceSource) Next() (geo.Voxel, bool) {
	if s.pos >= len(s.voxels) {
		return geo.Voxel{}, false
	}
	v := s.voxels[s.pos]
	s.pos++
	return v, true
}

// PointSource adapts a bare point slice to the Source interface.
func PointSource(origin uint32, points []geo.Point) *SliceSource {
	voxels := make([]geo.Voxel, len(points))
	for i, p := range points {
		voxels[i] = geo.Voxel{Point: p}
	}
	return NewSliceSource(origin, voxels)
}
