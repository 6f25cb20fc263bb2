// Package ratelimit throttles write-heavy actions per user, such as sending
// connect requests and messages.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vedran77/matrimony/pkg/logger"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Redis counts hits in fixed windows shared by every instance of the API.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(r.limit), nil
}

// Local is an in-process token bucket per key.
type Local struct {
	mu        sync.Mutex
	limiters  map[string]*localEntry
	r         rate.Limit
	burst     int
	lastSweep time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocal allows perMinute events per key with bursts up to burst.
func NewLocal(perMinute, burst int) *Local {
	return &Local{
		limiters:  make(map[string]*localEntry),
		r:         rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > 3*time.Minute {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.r, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Fallback asks primary and falls back to secondary while primary errors.
type Fallback struct {
	primary   Limiter
	secondary Limiter
}

func NewFallback(primary, secondary Limiter) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := f.primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, using local limiter")
	return f.secondary.Allow(ctx, key)
}
