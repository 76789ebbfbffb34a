package geo

import "fmt"

// Point is a position in 3D space.
type Point struct {
	X, Y, Z float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// Dir selects one of the eight octants of a bounds split at its
// midpoint. Bit 0 is set for the high X half, bit 1 for high Y,
// bit 2 for high Z.
type Dir uint8

// NumDirs is the number of octants.
const NumDirs = 8

// Direction returns the octant of p relative to mid. A coordinate equal
// to the midpoint goes to the high octant.
func Direction(mid, p Point) Dir {
	var d Dir
	if p.X >= mid.X {
		d |= 1
	}
	if p.Y >= mid.Y {
		d |= 2
	}
	if p.Z >= mid.Z {
		d |= 4
	}
	return d
}

// Voxel is a point together with its raw attribute payload, carried
// through insertion untouched.
type Voxel struct {
	Point Point
	Data  []byte
}
