package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// QuotaStore performs the atomic check-and-increment of one counter record.
type QuotaStore interface {
	ConsumeQuota(ctx context.Context, key string, maxOrders int, window time.Duration, now time.Time) (bool, int64, error)
}

type RateLimiter interface {
	// CheckAndConsume returns a *RateLimitError when identity has used up its
	// quota for the rolling window, nil otherwise.
	CheckAndConsume(ctx context.Context, identity string, maxOrders int, window time.Duration) error
}

type rateLimiter struct {
	store QuotaStore
	now   func() time.Time
}

func NewRateLimiter(store QuotaStore) RateLimiter {
	return &rateLimiter{store: store, now: time.Now}
}

// Limiter infrastructure errors fail open: the order is allowed and the
// failure is logged.
func (l *rateLimiter) CheckAndConsume(ctx context.Context, identity string, maxOrders int, window time.Duration) error {
	if l.store == nil {
		log.Printf("Rate limiter has no store, allowing order for %s", identity)
		return nil
	}

	allowed, count, err := l.store.ConsumeQuota(ctx, quotaKey(identity), maxOrders, window, l.now())
	if err != nil {
		log.Printf("Rate limiter unavailable, allowing order for %s: %v", identity, err)
		return nil
	}
	if !allowed {
		log.Printf("Rate limit hit for %s (%d orders)", identity, count)
		return &RateLimitError{Reason: fmt.Sprintf(
			"order limit reached: anonymous customers may place at most %d orders per %s, please try again later",
			maxOrders, formatWindow(window))}
	}
	return nil
}

func quotaKey(identity string) string {
	return "ratelimit:anon:" + identity
}

func formatWindow(window time.Duration) string {
	hours := int(window / time.Hour)
	switch {
	case window%time.Hour != 0:
		return window.String()
	case hours == 1:
		return "1 hour"
	default:
		return fmt.Sprintf("%d hours", hours)
	}
}
