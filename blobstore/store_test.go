package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// endpointContract exercises the behavior every Endpoint must share.
func endpointContract(t *testing.T, ep Endpoint) {
	t.Helper()
	ctx := context.Background()

	_, err := ep.Open(ctx, "missing.bin")
	require.ErrorIs(t, err, ErrNotFound)

	data := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, ep.Put(ctx, "data/1-0-0-0.bin", data))
	require.NoError(t, ep.Put(ctx, "data/2-1-1-0.bin", []byte("xyz")))
	require.NoError(t, ep.Put(ctx, "ept-hierarchy.json", []byte("{}")))

	b, err := ep.Open(ctx, "data/1-0-0-0.bin")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 5)
	n, err := b.ReadAt(ctx, buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "quick", string(buf))

	got, err := ReadAll(ctx, ep, "data/1-0-0-0.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := ep.List(ctx, "data/")
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"data/1-0-0-0.bin", "data/2-1-1-0.bin"}, names)

	require.NoError(t, ep.Delete(ctx, "data/2-1-1-0.bin"))
	_, err = ep.Open(ctx, "data/2-1-1-0.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing blob is not an error.
	assert.NoError(t, ep.Delete(ctx, "data/2-1-1-0.bin"))

	// Overwrite is atomic from the reader's perspective: a handle
	// opened before the overwrite still sees the old content.
	old, err := ep.Open(ctx, "ept-hierarchy.json")
	require.NoError(t, err)
	require.NoError(t, ep.Put(ctx, "ept-hierarchy.json", []byte(`{"0-0-0-0":1}`)))

	buf = make([]byte, 2)
	_, err = old.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(buf))
	require.NoError(t, old.Close())
}

func TestMemoryStore(t *testing.T) {
	endpointContract(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	endpointContract(t, NewLocalStore(t.TempDir()))
}

func TestLocalStorePutLeavesNoStaging(t *testing.T) {
	dir := t.TempDir()
	ep := NewLocalStore(dir)
	ctx := context.Background()

	require.NoError(t, ep.Put(ctx, "a/b.bin", []byte("payload")))

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.bin", entries[0].Name())
}

func TestReadAllEmptyBlob(t *testing.T) {
	ep := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, ep.Put(ctx, "empty", nil))

	got, err := ReadAll(ctx, ep, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadAllMissing(t *testing.T) {
	_, err := ReadAll(context.Background(), NewMemoryStore(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
