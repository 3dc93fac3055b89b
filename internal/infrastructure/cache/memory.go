package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chefmarket/backend/internal/domain"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	Value      []byte
	Expiration time.Time // zero means no expiry
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.Expiration.IsZero() && now.After(i.Expiration)
}

// MemoryCache is a thread-safe in-process implementation of domain.CacheRepository.
// Pattern deletes follow Redis MATCH globs: '*' and '?' also match '/'.
type MemoryCache struct {
	data   map[string]cacheItem
	mutex  sync.RWMutex
	prefix string

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

var _ domain.CacheRepository = (*MemoryCache)(nil)

// NewMemoryCache creates a new in-memory cache. Keys are namespaced under prefix when set.
func NewMemoryCache(prefix string) *MemoryCache {
	cache := &MemoryCache{
		data:   make(map[string]cacheItem),
		prefix: prefix,
		stop:   make(chan struct{}),
	}

	// Remove expired entries every 10 minutes until Close
	go cache.cleanupExpired(10 * time.Minute)

	return cache
}

// Enabled is always true for the in-process cache
func (c *MemoryCache) Enabled() bool { return true }

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mutex.RLock()
	item, exists := c.data[prefixed(c.prefix, key)]
	c.mutex.RUnlock()

	if !exists || item.expired(time.Now()) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return append([]byte(nil), item.Value...), true
}

// Set stores a value in the cache with TTL. A non-positive TTL stores without expiry.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	item := cacheItem{Value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.Expiration = time.Now().Add(ttl)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[prefixed(c.prefix, key)] = item
	return true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	k := prefixed(c.prefix, key)
	item, exists := c.data[k]
	delete(c.data, k)
	return exists && !item.expired(time.Now())
}

// DeletePattern removes every live key matching the glob
func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) int {
	full := prefixed(c.prefix, pattern)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, item := range c.data {
		if !globMatch(full, key) {
			continue
		}
		if !item.expired(now) {
			removed++
		}
		delete(c.data, key)
	}
	return removed
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[prefixed(c.prefix, key)]
	return exists && !item.expired(time.Now())
}

// TTL returns remaining seconds, -1 when the key has no expiry and -2 when it is missing
func (c *MemoryCache) TTL(ctx context.Context, key string) int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[prefixed(c.prefix, key)]
	now := time.Now()
	switch {
	case !exists || item.expired(now):
		return -2
	case item.Expiration.IsZero():
		return -1
	default:
		return int64(item.Expiration.Sub(now).Round(time.Second) / time.Second)
	}
}

// Stats reports the live key count and hit/miss counters
func (c *MemoryCache) Stats(ctx context.Context) domain.CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return domain.CacheStats{
		Enabled: true,
		Backend: "memory",
		Keys:    int64(c.Size()),
		Hits:    hits,
		Misses:  misses,
		Counters: map[string]int64{
			"GetHit":  hits,
			"GetMiss": misses,
		},
	}
}

// Flush removes all items from the cache and returns how many were live
func (c *MemoryCache) Flush(ctx context.Context) int {
	n := c.Size()
	c.Clear()
	return n
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, item := range c.data {
				if item.expired(now) {
					delete(c.data, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// Size returns the current number of live items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	n := 0
	for _, item := range c.data {
		if !item.expired(now) {
			n++
		}
	}
	return n
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

// globMatch reports whether s matches a Redis-style glob. Supports '*', '?',
// '[abc]', '[^a-z]' and backslash escapes. A malformed class matches literally.
func globMatch(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if globMatch(pattern[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			matched, rest, ok := matchClass(pattern[1:], s[0])
			if !ok {
				if s[0] != '[' {
					return false
				}
				s = s[1:]
				pattern = pattern[1:]
				continue
			}
			if !matched {
				return false
			}
			s = s[1:]
			pattern = rest
		case '\\':
			if len(pattern) > 1 {
				pattern = pattern[1:]
			}
			fallthrough
		default:
			if len(s) == 0 || s[0] != pattern[0] {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		}
	}
	return len(s) == 0
}

// matchClass matches c against the class body following '['. It returns the
// pattern after the closing ']' and ok=false when the class is unterminated.
func matchClass(class string, c byte) (matched bool, rest string, ok bool) {
	negate := false
	if len(class) > 0 && class[0] == '^' {
		negate = true
		class = class[1:]
	}
	for i := 0; i < len(class); i++ {
		switch {
		case class[i] == ']':
			return matched != negate, class[i+1:], true
		case class[i] == '\\' && i+1 < len(class):
			i++
			if class[i] == c {
				matched = true
			}
		case i+2 < len(class) && class[i+1] == '-' && class[i+2] != ']':
			lo, hi := class[i], class[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 2
		default:
			if class[i] == c {
				matched = true
			}
		}
	}
	return false, "", false
}
