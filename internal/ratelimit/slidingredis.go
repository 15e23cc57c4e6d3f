package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "promo:rl:"

// Decision is the outcome of a single Take call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// SlidingWindow counts attempts per key in a Redis sorted set scored by
// nanosecond timestamps. Guessing coupon codes is only viable with many
// validation calls in a short burst, which is exactly what a sliding window
// catches; a fixed window would let a guesser double up at the boundary.
type SlidingWindow struct {
	Redis  *redis.Client
	Prefix string
}

// Take registers one attempt for key and reports whether it stays within max
// for the window. Misconfiguration (no client, non-positive bounds) admits
// everything so a bad deploy never blocks checkouts.
func (s SlidingWindow) Take(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	d := Decision{Allowed: true, Remaining: max, ResetAt: now.Add(window)}
	if s.Redis == nil || max <= 0 || window <= 0 {
		return d, nil
	}

	prefix := s.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	setKey := prefix + key
	cutoff := fmt.Sprintf("%f", float64(now.Add(-window).UnixNano()))

	pipe := s.Redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, setKey, "-inf", cutoff)
	pipe.ZAdd(ctx, setKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, setKey)
	pipe.Expire(ctx, setKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: d.ResetAt}, err
	}

	attempts := int(card.Val())
	d.Allowed = attempts <= max
	d.Remaining = max - attempts
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}
