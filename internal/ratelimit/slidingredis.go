package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys for the finalize endpoint, the only
// route the terminal throttles.
const DefaultPrefix = "ratelimit:finalize:"

// Limiter implements a sliding window rate limiter backed by Redis sorted
// sets. It throttles finalize attempts per terminal so a wedged client
// retry loop cannot flood the store backend with transaction submissions.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow registers a finalize attempt for the given terminal key and returns
// whether it is within the limit. A nil client or non-positive limit
// disables throttling, which keeps single-store deployments without Redis
// capacity planning working.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	if l.Prefix == "" {
		l.Prefix = DefaultPrefix
	}

	now := time.Now()
	until := now.Add(window)
	score := float64(now.UnixNano())
	cutoff := float64(now.Add(-window).UnixNano())

	redisKey := l.Prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, until, err
	}

	current := int(countCmd.Val())
	remaining = max - current
	if remaining < 0 {
		remaining = 0
	}
	allowed = current <= max
	return allowed, remaining, until, nil
}
