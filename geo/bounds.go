package geo

import "fmt"

// Bounds is an axis-aligned box. Min is inclusive, Max exclusive.
type Bounds struct {
	Min, Max Point
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%s, %s)", b.Min, b.Max)
}

// Mid returns the center of the bounds.
func (b Bounds) Mid() Point {
	return Point{
		X: b.Min.X + (b.Max.X-b.Min.X)/2,
		Y: b.Min.Y + (b.Max.Y-b.Min.Y)/2,
		Z: b.Min.Z + (b.Max.Z-b.Min.Z)/2,
	}
}

// Contains reports whether p lies within the bounds.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// Width returns the X extent. Bounds are cubic in a well-formed index,
// so Width doubles as the edge length.
func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

// Get returns the octant of the bounds in direction d.
func (b Bounds) Get(d Dir) Bounds {
	mid := b.Mid()
	out := b
	if d&1 != 0 {
		out.Min.X = mid.X
	} else {
		out.Max.X = mid.X
	}
	if d&2 != 0 {
		out.Min.Y = mid.Y
	} else {
		out.Max.Y = mid.Y
	}
	if d&4 != 0 {
		out.Min.Z = mid.Z
	} else {
		out.Max.Z = mid.Z
	}
	return out
}
