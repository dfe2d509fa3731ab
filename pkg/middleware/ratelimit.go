package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/toolgate/pkg/registry"
	"github.com/aretw0/toolgate/pkg/response"
	"golang.org/x/time/rate"
)

// KeyFunc derives the rate-limit bucket of a call. An empty key skips
// limiting for that call.
type KeyFunc func(ctx context.Context, args map[string]any) string

// ArgKey buckets calls by the string value of one argument.
func ArgKey(name string) KeyFunc {
	return func(ctx context.Context, args map[string]any) string {
		v, _ := args[name].(string)
		return v
	}
}

// Limiter applies a token bucket per key and evicts idle buckets.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a keyed limiter allowing rps calls per second with the
// given burst per key.
func NewLimiter(rps float64, burst int, idleTTL time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Limiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		byKey:   make(map[string]*bucket),
	}
}

// Allow reports whether one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}
	return allowed
}

// RateLimit rejects calls beyond the limiter's rate with a RATE_LIMITED
// response. A nil key func uses one bucket for every call.
func RateLimit(l *Limiter, key KeyFunc) registry.Middleware {
	if key == nil {
		key = func(context.Context, map[string]any) string { return "*" }
	}
	return func(ctx context.Context, args map[string]any, next registry.Handler) (any, error) {
		if !l.Allow(key(ctx, args)) {
			return response.Error(response.RateLimited,
				fmt.Sprintf("Rate limit exceeded (%.3g calls/s, burst %d).", float64(l.limit), l.burst),
				response.WithRecovery("Wait a moment before calling again."),
			), nil
		}
		return next(ctx, args)
	}
}
