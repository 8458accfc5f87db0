package answer

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff returns the wait before retry n (0-indexed): base doubled per
// attempt, capped at limit, plus up to 50% jitter.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := base << uint(attempt)
	if d <= 0 || d > limit {
		d = limit
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
