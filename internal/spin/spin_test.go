package spin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMutualExclusion(t *testing.T) {
	var l Lock
	var wg sync.WaitGroup

	const workers = 8
	const iters = 1000

	counter := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iters {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iters, counter)
}

func TestTryLock(t *testing.T) {
	var l Lock

	require.True(t, l.TryLock())
	assert.False(t, l.TryLock())

	l.Unlock()
	assert.True(t, l.TryLock())
	l.Unlock()
}

func TestUnlockUnheldPanics(t *testing.T) {
	var l Lock
	assert.Panics(t, func() { l.Unlock() })
}
