package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
)

// idleLimiter is how long a caller's bucket survives without requests.
const idleLimiter = time.Hour

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiters holds one token bucket per caller.
type limiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
}

func (l *limiters) allow(caller string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[caller]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[caller] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *limiters) evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for caller, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, caller)
		}
	}
}

// RateLimit limits each caller, identified by API key or client IP, to a
// token bucket. Idle buckets are dropped every 5 minutes until ctx ends.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	l := &limiters{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucket),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now.Add(-idleLimiter))
			}
		}
	}()

	return func(c *gin.Context) {
		caller := c.GetString(CallerKey)
		if caller == "" {
			caller = c.ClientIP()
		}
		if !l.allow(caller, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				errorBody(models.ErrCodeRateLimited, "rate limit exceeded, slow down"))
			return
		}
		c.Next()
	}
}
