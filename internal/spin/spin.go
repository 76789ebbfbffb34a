// Package spin provides a small spinlock. The cache's critical sections
// are a handful of loads and stores, so spinning with a scheduler yield
// beats parking a goroutine on a mutex.
package spin

import (
	"runtime"
	"sync/atomic"
)

// Lock is a spinlock. The zero value is unlocked. It must not be copied
// after first use.
type Lock struct {
	state atomic.Uint32
}

// Lock acquires the lock, yielding to the scheduler between attempts.
func (l *Lock) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// TryLock acquires the lock without spinning. It reports whether the
// lock was acquired.
func (l *Lock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock. Unlocking an unheld lock panics.
func (l *Lock) Unlock() {
	if !l.state.CompareAndSwap(1, 0) {
		panic("spin: unlock of unlocked lock")
	}
}
