package source

import (
	"context"
	"time"
)

// WithTimeout bounds ctx by d when d is positive. A zero d leaves the
// driver's own timeout policy in charge.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
