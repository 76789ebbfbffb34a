package geo

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cube(edge float64) Bounds {
	return Bounds{Max: Point{X: edge, Y: edge, Z: edge}}
}

func TestDirection(t *testing.T) {
	mid := Point{X: 5, Y: 5, Z: 5}

	tests := []struct {
		name string
		p    Point
		want Dir
	}{
		{"all low", Point{1, 1, 1}, 0},
		{"x high", Point{9, 1, 1}, 1},
		{"y high", Point{1, 9, 1}, 2},
		{"z high", Point{1, 1, 9}, 4},
		{"all high", Point{9, 9, 9}, 7},
		{"ties go high", Point{5, 5, 5}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Direction(mid, tt.p))
		})
	}
}

func TestBoundsGet(t *testing.T) {
	b := cube(8)

	for d := Dir(0); d < NumDirs; d++ {
		oct := b.Get(d)
		assert.Equal(t, 4.0, oct.Width(), "octant %d", d)
		assert.True(t, b.Contains(oct.Mid()), "octant %d mid inside parent", d)
	}

	// The high-everything octant hugs the parent max corner.
	hi := b.Get(7)
	assert.Equal(t, Point{4, 4, 4}, hi.Min)
	assert.Equal(t, Point{8, 8, 8}, hi.Max)
}

func TestKeyStep(t *testing.T) {
	k := NewKey(cube(8))
	p := Point{X: 6, Y: 1, Z: 1}

	k.Step(p)
	require.Equal(t, uint64(1), k.D.Depth)
	assert.Equal(t, Xyz{X: 1, Y: 0, Z: 0}, k.D.Xyz)
	assert.True(t, k.B.Contains(p))

	k.Step(p)
	require.Equal(t, uint64(2), k.D.Depth)
	assert.True(t, k.B.Contains(p))

	// The key's bounds always halve per step.
	assert.Equal(t, 2.0, k.B.Width())
}

func TestChunkKeyChild(t *testing.T) {
	root := RootChunkKey(cube(8))

	child := root.Child(5) // x high, z high
	assert.Equal(t, uint64(1), child.Depth())
	assert.Equal(t, Xyz{X: 1, Y: 0, Z: 1}, child.Position())
	assert.Equal(t, root.Bounds().Get(5), child.Bounds())

	// Stepping a key and deriving the child agree on identity.
	k := NewKey(cube(8))
	p := Point{X: 7, Y: 0.5, Z: 7}
	k.Step(p)
	assert.Equal(t, child.Dxyz(), k.Dxyz())
}

func TestDxyzOrdering(t *testing.T) {
	ids := []Dxyz{
		{Depth: 2, Xyz: Xyz{X: 1, Y: 0, Z: 0}},
		{Depth: 0},
		{Depth: 2, Xyz: Xyz{X: 0, Y: 1, Z: 1}},
		{Depth: 1, Xyz: Xyz{X: 1, Y: 1, Z: 1}},
		{Depth: 2, Xyz: Xyz{X: 0, Y: 1, Z: 0}},
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	want := []Dxyz{
		{Depth: 0},
		{Depth: 1, Xyz: Xyz{X: 1, Y: 1, Z: 1}},
		{Depth: 2, Xyz: Xyz{X: 0, Y: 1, Z: 0}},
		{Depth: 2, Xyz: Xyz{X: 0, Y: 1, Z: 1}},
		{Depth: 2, Xyz: Xyz{X: 1, Y: 0, Z: 0}},
	}
	assert.Equal(t, want, ids)

	// Deepest-first eviction takes the maximum.
	assert.Equal(t, Dxyz{Depth: 2, Xyz: Xyz{X: 1, Y: 0, Z: 0}}, ids[len(ids)-1])
}

func TestDxyzString(t *testing.T) {
	d := Dxyz{Depth: 3, Xyz: Xyz{X: 4, Y: 5, Z: 6}}
	assert.Equal(t, "3-4-5-6", d.String())
}
