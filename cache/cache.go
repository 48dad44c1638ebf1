package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nipunrajk/accessiblity-sub002/models"
)

// entry holds a cached scan with its creation timestamp.
type entry struct {
	response  *models.ScanResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for scan responses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
}

// New creates a Cache holding at most maxEntries scans for up to ttl
// each. maxEntries <= 0 disables the cache: every Get misses and Set
// does nothing. A background goroutine evicts expired entries every
// 5 minutes.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
	if maxEntries > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key derives the cache key for a scan request from every field that
// affects the response body. Timeout cannot, so it is not part of the key.
func Key(req *models.ScanRequest) string {
	h := sha256.New()
	io.WriteString(h, req.URL)
	io.WriteString(h, "|")
	io.WriteString(h, strings.Join(req.Rules, ","))
	io.WriteString(h, "|")
	io.WriteString(h, req.Severity)
	io.WriteString(h, "|")
	io.WriteString(h, req.Scope)
	io.WriteString(h, "|")
	io.WriteString(h, strconv.FormatBool(req.Stealth))
	io.WriteString(h, "|")
	io.WriteString(h, strconv.FormatBool(req.IncludeSummary))

	// Headers in sorted order so equivalent requests share a key.
	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		io.WriteString(h, "|")
		io.WriteString(h, k)
		io.WriteString(h, "=")
		io.WriteString(h, req.Headers[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached scan younger than the TTL. The returned
// response is a shallow copy, so callers may tag it (cache status)
// without affecting other readers.
func (c *Cache) Get(key string) (*models.ScanResponse, bool) {
	if c.maxEntries <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.ttl {
		return nil, false
	}

	cp := *e.response
	return &cp, true
}

// Set stores a scan in the cache. If the cache is at capacity, a random
// entry is evicted to make room (map iteration order is random in Go).
func (c *Cache) Set(key string, resp *models.ScanResponse) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  resp,
		createdAt: time.Now(),
	}
}

// Len reports the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// cleanupLoop evicts entries older than the TTL every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.ttl)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
