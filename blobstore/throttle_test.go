package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/pointgo/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledStorePassThrough(t *testing.T) {
	endpointContract(t, NewThrottledStore(NewMemoryStore(), nil))
}

func TestThrottledStoreLimitsRate(t *testing.T) {
	ctx := context.Background()
	ep := NewThrottledStore(NewMemoryStore(), resource.NewController(1024))

	// First put consumes the burst; the second has to wait for refill.
	require.NoError(t, ep.Put(ctx, "a", make([]byte, 1024)))

	start := time.Now()
	require.NoError(t, ep.Put(ctx, "b", make([]byte, 512)))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestThrottledStoreHonorsContext(t *testing.T) {
	ep := NewThrottledStore(NewMemoryStore(), resource.NewController(16))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Way over budget: must give up when the context expires.
	err := ep.Put(ctx, "big", make([]byte, 1<<20))
	assert.Error(t, err)
}
