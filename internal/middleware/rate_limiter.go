package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps one token bucket per key in process memory.
// Buckets idle for longer than idleTTL are dropped.
type LocalRateLimiter struct {
	r        rate.Limit
	b        int
	idleTTL  time.Duration
	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
}

func NewLocalRateLimiter(r rate.Limit, b int) *LocalRateLimiter {
	return &LocalRateLimiter{
		r:        r,
		b:        b,
		idleTTL:  10 * time.Minute,
		visitors: make(map[string]*visitor),
		lastGC:   time.Now(),
	}
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > l.idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.r, l.b)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.Allow(), nil
}

func (l *LocalRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// DistributedRateLimiter is a sliding-window limiter stored in Redis sorted
// sets. Redis failures trip a circuit breaker and requests are then judged by
// the fallback limiter until the breaker resets.
type DistributedRateLimiter struct {
	redis    *redis.Client
	name     string
	rate     int
	window   time.Duration
	breaker  *CircuitBreaker
	fallback Limiter
}

func NewDistributedRateLimiter(redisClient *redis.Client, name string, limit int, window time.Duration, fallback Limiter) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		redis:    redisClient,
		name:     name,
		rate:     limit,
		window:   window,
		breaker:  NewCircuitBreaker(3, 30*time.Second),
		fallback: fallback,
	}
}

func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	var allowed bool
	err := rl.breaker.Call(func() error {
		var err error
		allowed, err = rl.checkLimit(ctx, fmt.Sprintf("rate_limit:%s:%s", rl.name, key))
		return err
	})
	if err == nil {
		return allowed, nil
	}

	if rl.fallback == nil {
		return false, err
	}
	log.Printf("⚠️ Redis rate limiter unavailable, using local limiter: %v", err)
	return rl.fallback.Allow(ctx, key)
}

func (rl *DistributedRateLimiter) checkLimit(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - rl.window.Nanoseconds()

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, key, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	return countCmd.Val() < int64(rl.rate), nil
}

// RateLimit rejects requests with 429 once limiter refuses the key produced
// by keyFunc. Limiter errors let the request through.
func RateLimit(limiter Limiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			c.Header("X-RateLimit-Error", "true")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RateLimiter is the per-IP in-memory limiter applied to every route.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimit(NewLocalRateLimiter(r, b), IPKeyFunc)
}

func IPKeyFunc(c *gin.Context) string {
	return c.ClientIP()
}

// UsernameKeyFunc keys by authenticated username, falling back to the client IP.
func UsernameKeyFunc(c *gin.Context) string {
	if username := c.GetString(ContextUsername); username != "" {
		return "user:" + username
	}
	return c.ClientIP()
}
