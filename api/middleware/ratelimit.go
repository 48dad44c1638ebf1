package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nipunrajk/accessiblity-sub002/config"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"golang.org/x/time/rate"
)

// limiterTable tracks one token bucket per caller identity.
type limiterTable struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterTable(cfg config.RateLimitConfig) *limiterTable {
	t := &limiterTable{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
	go t.evictLoop()
	return t
}

func (t *limiterTable) get(identity string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[identity]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.entries[identity] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// evictLoop drops identities idle for over an hour, keeping the table
// bounded when many distinct callers come and go.
func (t *limiterTable) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		t.mu.Lock()
		for id, e := range t.entries {
			if e.lastSeen.Before(cutoff) {
				delete(t.entries, id)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimit returns per-identity token-bucket limiting middleware. Every
// scan and screenshot ties up a browser worker, so the limiter sits in
// front of the whole protected group. Identity is the caller's API key
// when auth ran, the client IP otherwise.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	table := newLimiterTable(cfg)

	return func(c *gin.Context) {
		identity := c.ClientIP()
		if key, ok := c.Get("api_key"); ok {
			identity = key.(string)
		}

		if !table.get(identity).Allow() {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(cfg.RequestsPerSecond)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ScanResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}

// retryAfterSeconds estimates when the next token becomes available.
func retryAfterSeconds(rps float64) int {
	if rps <= 0 {
		return 1
	}
	secs := int(1 / rps)
	if secs < 1 {
		secs = 1
	}
	return secs
}
