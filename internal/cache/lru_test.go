package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU(1024)

	key := Key{Name: "data/0-0-0-0.bin", Block: 0}
	_, ok := c.Get(key)
	require.False(t, ok)

	c.Set(key, []byte("hello"))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(30)

	for i := range 4 {
		c.Set(Key{Name: "b", Block: int64(i)}, make([]byte, 10))
	}

	// Capacity holds three 10-byte blocks; block 0 is the LRU victim.
	_, ok := c.Get(Key{Name: "b", Block: 0})
	assert.False(t, ok)
	_, ok = c.Get(Key{Name: "b", Block: 3})
	assert.True(t, ok)
	assert.Equal(t, int64(30), c.Size())
}

func TestLRUOversizedItemNotCached(t *testing.T) {
	c := NewLRU(10)
	c.Set(Key{Name: "big"}, make([]byte, 11))
	_, ok := c.Get(Key{Name: "big"})
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Size())
}

func TestLRUInvalidate(t *testing.T) {
	c := NewLRU(1024)
	for i := range 5 {
		c.Set(Key{Name: fmt.Sprintf("blob-%d", i%2), Block: int64(i)}, []byte{byte(i)})
	}

	c.Invalidate(func(k Key) bool { return k.Name == "blob-0" })

	_, ok := c.Get(Key{Name: "blob-0", Block: 0})
	assert.False(t, ok)
	_, ok = c.Get(Key{Name: "blob-1", Block: 1})
	assert.True(t, ok)
}
