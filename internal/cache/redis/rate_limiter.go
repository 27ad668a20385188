package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

const waitPollInterval = 50 * time.Millisecond

// RateLimiter implements domain.RateLimiter as a fixed one-second window
// counter shared by every process that talks to the same Redis. A limit of
// zero or less disables throttling.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows perSecond calls per key per second.
func NewRateLimiter(c *Client, perSecond int) *RateLimiter {
	return &RateLimiter{
		rdb:    c.Underlying(),
		limit:  int64(perSecond),
		window: time.Second,
		now:    time.Now,
	}
}

func rateLimitKey(key string, slot int64) string {
	return keyPrefix + "ratelimit:" + key + ":" + strconv.FormatInt(slot, 10)
}

// Allow counts one call against the current window and reports whether it
// fits under the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}
	slot := rl.now().UnixNano() / int64(rl.window)
	k := rateLimitKey(key, slot)

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	return incr.Val() <= rl.limit, nil
}

// Wait polls Allow until the call fits or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		allowed, err := rl.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(waitPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
