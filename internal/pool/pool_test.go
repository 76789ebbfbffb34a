package pool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4)

	var done atomic.Int64
	for range 100 {
		p.Add(func() { done.Add(1) })
	}
	p.Join()

	assert.Equal(t, int64(100), done.Load())
}

func TestJoinWaitsForInFlight(t *testing.T) {
	p := New(2)

	var done atomic.Bool
	p.Add(func() {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	})
	p.Join()

	assert.True(t, done.Load())
}

func TestAddDoesNotBlock(t *testing.T) {
	p := New(1)

	release := make(chan struct{})
	p.Add(func() { <-release })

	// The single worker is busy; further adds must still return
	// immediately.
	added := make(chan struct{})
	go func() {
		for range 1000 {
			p.Add(func() {})
		}
		close(added)
	}()

	select {
	case <-added:
	case <-time.After(time.Second):
		t.Fatal("Add blocked while worker was busy")
	}

	close(release)
	p.Join()
}

func TestAddAfterJoinPanics(t *testing.T) {
	p := New(1)
	p.Join()
	assert.Panics(t, func() { p.Add(func() {}) })
}
