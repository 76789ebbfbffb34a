// Package hierarchy tracks how many points each chunk of the octree
// holds in remote storage. The cache consults it to decide whether a
// chunk must be reanimated from its endpoint, and updates it after
// every serialization.
package hierarchy

import (
	"fmt"
	"sync"

	"github.com/hupe1980/pointgo/geo"
)

// Hierarchy is a thread-safe map from chunk identity to persisted
// point count. A zero count means the chunk has no remote content.
type Hierarchy struct {
	mu sync.RWMutex
	m  map[geo.Dxyz]uint64
}

// New creates an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{m: make(map[geo.Dxyz]uint64)}
}

// Get returns the persisted point count for the chunk, zero if none.
func (h *Hierarchy) Get(d geo.Dxyz) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.m[d]
}

// Set records the persisted point count for the chunk.
func (h *Hierarchy) Set(d geo.Dxyz, np uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if np == 0 {
		delete(h.m, d)
		return
	}
	h.m[d] = np
}

// Len returns the number of chunks with remote content.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.m)
}

// TotalPoints returns the sum of all persisted point counts.
func (h *Hierarchy) TotalPoints() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var total uint64
	for _, np := range h.m {
		total += np
	}
	return total
}

// Each calls fn for every entry. The hierarchy is read-locked for the
// duration; fn must not call back into the hierarchy.
func (h *Hierarchy) Each(fn func(d geo.Dxyz, np uint64)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for d, np := range h.m {
		fn(d, np)
	}
}

// snapshot returns a copy of the map for persistence.
func (h *Hierarchy) snapshot() map[string]uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]uint64, len(h.m))
	for d, np := range h.m {
		out[d.String()] = np
	}
	return out
}

// replace swaps in decoded state.
func (h *Hierarchy) replace(in map[string]uint64) error {
	m := make(map[geo.Dxyz]uint64, len(in))
	for key, np := range in {
		var d geo.Dxyz
		if _, err := fmt.Sscanf(key, "%d-%d-%d-%d", &d.Depth, &d.X, &d.Y, &d.Z); err != nil {
			return fmt.Errorf("hierarchy: bad key %q: %w", key, err)
		}
		m[d] = np
	}
	h.mu.Lock()
	h.m = m
	h.mu.Unlock()
	return nil
}
