package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// counterStore is the slice of pkg/redis the limiter needs.
type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (int64, bool, error)
}

// RedisLimiter is the shared-store fixed window for deployments running
// more than one dispatcher process. Keys are bucketed on the window start,
// so "reset" is simply a new key and INCR is the whole conditional op: an
// attempt is allowed iff its incremented count lands at or under max.
// Denied attempts keep incrementing the stored count; reads clamp it.
type RedisLimiter struct {
	store counterStore
	now   func() time.Time
}

func NewRedisLimiter(store counterStore) *RedisLimiter {
	return &RedisLimiter{store: store, now: time.Now}
}

func (l *RedisLimiter) key(number string, bucket time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", number, bucket.Unix())
}

func (l *RedisLimiter) TryConsume(ctx context.Context, number string, max int, window time.Duration) (bool, error) {
	if max <= 0 {
		return false, nil
	}

	bucket := l.now().Truncate(window)

	// TTL slightly past the window end so Status can still see a closing
	// window; expired keys are never consulted for decisions.
	n, err := l.store.IncrWithTTL(ctx, l.key(number, bucket), window+time.Minute)
	if err != nil {
		return false, fmt.Errorf("rate limit counter update failed: %w", err)
	}

	return n <= int64(max), nil
}

func (l *RedisLimiter) Status(ctx context.Context, number string, max int, window time.Duration) (Status, error) {
	bucket := l.now().Truncate(window)

	n, ok, err := l.store.GetInt(ctx, l.key(number, bucket))
	if err != nil {
		return Status{}, fmt.Errorf("rate limit counter read failed: %w", err)
	}

	status := Status{
		Number:    number,
		Max:       max,
		WindowEnd: bucket.Add(window),
	}
	if !ok {
		status.Remaining = max
		return status, nil
	}

	count := int(n)
	if count > max {
		count = max
	}
	status.Count = count
	status.Remaining = max - count
	if max > 0 {
		status.UsagePct = float64(count) / float64(max) * 100
	}

	return status, nil
}
