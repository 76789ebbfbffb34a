// Package resource throttles I/O so chunk serialization cannot
// saturate the uplink shared with reanimation reads.
package resource

import (
	"context"

	"golang.org/x/time/rate"
)

// Controller enforces a byte-rate limit on blob I/O. A nil Controller
// is valid and imposes no limit.
type Controller struct {
	limiter *rate.Limiter
}

// NewController creates a controller allowing bytesPerSec of blob I/O,
// with a burst of the same size.
func NewController(bytesPerSec int) *Controller {
	return &Controller{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
	}
}

// WaitIO blocks until n bytes of I/O budget are available, or the
// context is done. Requests larger than the burst are split.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	burst := c.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
