package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/pointgo/blobstore"
	"github.com/hupe1980/pointgo/codec"
)

// FileName is the blob the hierarchy persists under. The layout
// matches what EPT-style readers expect: one JSON object keyed by
// "d-x-y-z" with point counts as values.
const FileName = "ept-hierarchy.json"

// Save writes the hierarchy through the endpoint.
func (h *Hierarchy) Save(ctx context.Context, ep blobstore.Endpoint) error {
	data, err := codec.Default.Marshal(h.snapshot())
	if err != nil {
		return fmt.Errorf("hierarchy: encode: %w", err)
	}
	if err := ep.Put(ctx, FileName, data); err != nil {
		return fmt.Errorf("hierarchy: save: %w", err)
	}
	return nil
}

// Load reads the hierarchy from the endpoint. A missing blob loads an
// empty hierarchy so fresh and resumed builds share one path.
func (h *Hierarchy) Load(ctx context.Context, ep blobstore.Endpoint) error {
	data, err := blobstore.ReadAll(ctx, ep, FileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return h.replace(nil)
		}
		return fmt.Errorf("hierarchy: load: %w", err)
	}

	var in map[string]uint64
	if err := codec.Default.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("hierarchy: decode: %w", err)
	}
	return h.replace(in)
}
