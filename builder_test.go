package pointgo

import (
	"context"
	"math/rand"
	"testing"

	"github.com/hupe1980/pointgo/blobstore"
	"github.com/hupe1980/pointgo/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBounds() geo.Bounds {
	return geo.Bounds{Max: geo.Point{X: 128, Y: 128, Z: 128}}
}

func randomPoints(seed int64, n int) []geo.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]geo.Point, n)
	for i := range pts {
		pts[i] = geo.Point{
			X: rng.Float64() * 128,
			Y: rng.Float64() * 128,
			Z: rng.Float64() * 128,
		}
	}
	return pts
}

func TestBuilderEndToEnd(t *testing.T) {
	ctx := context.Background()
	out := blobstore.NewMemoryStore()
	tmp := blobstore.NewMemoryStore()

	metrics := &BasicMetricsCollector{}
	b, err := NewBuilder(ctx, out, tmp, testBounds(),
		WithWorkers(2),
		WithCacheSize(4),
		WithSpan(8),
		WithClipBatch(100),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)

	sources := []Source{
		PointSource(0, randomPoints(1, 500)),
		PointSource(1, randomPoints(2, 500)),
	}
	require.NoError(t, b.Run(ctx, sources))
	require.NoError(t, b.Close(ctx))

	// Every point landed in exactly one persisted chunk.
	assert.Equal(t, uint64(1000), b.Hierarchy().TotalPoints())
	assert.Equal(t, uint64(2), b.manifest.InsertedCount())
	assert.Equal(t, int64(1000), metrics.PointsInserted.Load())

	// Hierarchy and manifest made it to the output endpoint.
	names, err := out.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "ept-hierarchy.json")
	assert.Contains(t, names, "ept-manifest.bin")

	// One data blob per hierarchy entry.
	data, err := out.List(ctx, "data/")
	require.NoError(t, err)
	assert.Len(t, data, b.Hierarchy().Len())
}

func TestBuilderResumeSkipsIngestedSources(t *testing.T) {
	ctx := context.Background()
	out := blobstore.NewMemoryStore()
	tmp := blobstore.NewMemoryStore()

	points := randomPoints(3, 300)

	b, err := NewBuilder(ctx, out, tmp, testBounds(), WithSpan(8))
	require.NoError(t, err)
	require.NoError(t, b.Run(ctx, []Source{PointSource(7, points)}))
	require.NoError(t, b.Close(ctx))

	total := b.Hierarchy().TotalPoints()
	require.Equal(t, uint64(300), total)

	// Reopen against the same endpoints: the source's origin is in the
	// manifest, so running it again ingests nothing.
	b2, err := NewBuilder(ctx, out, tmp, testBounds(), WithSpan(8))
	require.NoError(t, err)
	assert.True(t, b2.manifest.IsInserted(7))

	require.NoError(t, b2.Run(ctx, []Source{PointSource(7, points)}))
	require.NoError(t, b2.Close(ctx))

	assert.Equal(t, total, b2.Hierarchy().TotalPoints())
}

func TestBuilderResumeAddsNewSource(t *testing.T) {
	ctx := context.Background()
	out := blobstore.NewMemoryStore()
	tmp := blobstore.NewMemoryStore()

	b, err := NewBuilder(ctx, out, tmp, testBounds(), WithSpan(8), WithCacheSize(2))
	require.NoError(t, err)
	require.NoError(t, b.Run(ctx, []Source{PointSource(0, randomPoints(4, 200))}))
	require.NoError(t, b.Close(ctx))

	// Second process: new source, existing chunks get reanimated as
	// its points land in them.
	b2, err := NewBuilder(ctx, out, tmp, testBounds(), WithSpan(8), WithCacheSize(2))
	require.NoError(t, err)
	require.NoError(t, b2.Run(ctx, []Source{PointSource(1, randomPoints(5, 200))}))
	require.NoError(t, b2.Close(ctx))

	assert.Equal(t, uint64(400), b2.Hierarchy().TotalPoints())
}

func TestBuilderWithReadCacheAndThrottle(t *testing.T) {
	ctx := context.Background()
	out := blobstore.NewMemoryStore()
	tmp := blobstore.NewMemoryStore()

	b, err := NewBuilder(ctx, out, tmp, testBounds(),
		WithSpan(8),
		WithCacheSize(1),
		WithReadCache(1<<20, 4096),
		WithIOLimit(64<<20),
	)
	require.NoError(t, err)
	require.NoError(t, b.Run(ctx, []Source{PointSource(0, randomPoints(6, 200))}))
	require.NoError(t, b.Close(ctx))

	assert.Equal(t, uint64(200), b.Hierarchy().TotalPoints())
}

func TestBuilderInvalidBounds(t *testing.T) {
	ctx := context.Background()
	bad := geo.Bounds{Min: geo.Point{X: 10}, Max: geo.Point{X: 10, Y: 10, Z: 10}}

	_, err := NewBuilder(ctx, blobstore.NewMemoryStore(), blobstore.NewMemoryStore(), bad)
	var ib *ErrInvalidBounds
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, bad, ib.Bounds)
}

func TestBuilderUseAfterClose(t *testing.T) {
	ctx := context.Background()

	b, err := NewBuilder(ctx, blobstore.NewMemoryStore(), blobstore.NewMemoryStore(), testBounds())
	require.NoError(t, err)
	require.NoError(t, b.Close(ctx))

	assert.ErrorIs(t, b.Run(ctx, nil), ErrClosed)
	assert.ErrorIs(t, b.Close(ctx), ErrClosed)
}

func TestBuilderSourceFailure(t *testing.T) {
	b, err := NewBuilder(context.Background(), blobstore.NewMemoryStore(), blobstore.NewMemoryStore(), testBounds())
	require.NoError(t, err)

	// A cancelled context fails every source; the failure carries the
	// origin and unwraps to the cause.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err = b.Run(cancelled, []Source{PointSource(5, randomPoints(8, 10))})
	var sf *ErrSourceFailed
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, uint32(5), sf.Origin)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, b.Close(context.Background()))
}

func TestSliceSource(t *testing.T) {
	src := PointSource(9, []geo.Point{{X: 1}, {X: 2}})
	assert.Equal(t, uint32(9), src.Origin())

	v, ok := src.Next()
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Point.X)

	_, ok = src.Next()
	require.True(t, ok)
	_, ok = src.Next()
	assert.False(t, ok)
}

func TestManifestRoundTrip(t *testing.T) {
	ctx := context.Background()
	ep := blobstore.NewMemoryStore()

	m := NewManifest()
	m.MarkInserted(3)
	m.MarkInserted(900000)
	require.NoError(t, m.Save(ctx, ep))

	got := NewManifest()
	require.NoError(t, got.Load(ctx, ep))
	assert.True(t, got.IsInserted(3))
	assert.True(t, got.IsInserted(900000))
	assert.False(t, got.IsInserted(4))
	assert.Equal(t, uint64(2), got.InsertedCount())
}
