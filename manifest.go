package pointgo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/pointgo/blobstore"
)

// manifestBlobName is the blob the ingestion manifest persists under.
const manifestBlobName = "ept-manifest.bin"

// Manifest tracks which source origins have been fully ingested, so a
// resumed build skips them. Thread-safe.
type Manifest struct {
	mu       sync.Mutex
	inserted *roaring.Bitmap
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{inserted: roaring.New()}
}

// MarkInserted records that the origin's source is fully ingested.
func (m *Manifest) MarkInserted(origin uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted.Add(origin)
}

// IsInserted reports whether the origin's source is fully ingested.
func (m *Manifest) IsInserted(origin uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserted.Contains(origin)
}

// InsertedCount returns the number of ingested sources.
func (m *Manifest) InsertedCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserted.GetCardinality()
}

// Save writes the manifest through the endpoint.
func (m *Manifest) Save(ctx context.Context, ep blobstore.Endpoint) error {
	m.mu.Lock()
	data, err := m.inserted.MarshalBinary()
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := ep.Put(ctx, manifestBlobName, data); err != nil {
		return fmt.Errorf("manifest: save: %w", err)
	}
	return nil
}

// Load reads the manifest from the endpoint. A missing blob loads an
// empty manifest.
func (m *Manifest) Load(ctx context.Context, ep blobstore.Endpoint) error {
	data, err := blobstore.ReadAll(ctx, ep, manifestBlobName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			m.mu.Lock()
			m.inserted = roaring.New()
			m.mu.Unlock()
			return nil
		}
		return fmt.Errorf("manifest: load: %w", err)
	}

	bm := roaring.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("manifest: decode: %w", err)
	}
	m.mu.Lock()
	m.inserted = bm
	m.mu.Unlock()
	return nil
}
