package cache

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// DefaultOpTimeout bounds every round-trip to Redis, including the startup ping
const DefaultOpTimeout = 2 * time.Second

const scanBatch = 500

// RedisOptions configures a RedisCache
type RedisOptions struct {
	URL       string
	KeyPrefix string
	OpTimeout time.Duration
}

// RedisCache implements domain.CacheRepository over Redis.
// If the startup ping fails the cache is disabled and every operation is a no-op miss.
type RedisCache struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
	enabled   atomic.Bool
	logger    *zap.Logger

	mu       sync.Mutex
	counters map[string]int64
}

var _ domain.CacheRepository = (*RedisCache)(nil)

// NewRedisCache connects to opts.URL and pings it. It never fails: connectivity problems
// leave the returned cache disabled.
func NewRedisCache(opts RedisOptions, logger *zap.Logger) *RedisCache {
	logger = logging.OrNop(logger)
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		logger.Warn("invalid redis url, cache disabled", zap.Error(err))
		return newDisabledRedisCache(opts.KeyPrefix, timeout, logger)
	}
	redisOpts.DialTimeout = timeout
	redisOpts.ReadTimeout = timeout
	redisOpts.WriteTimeout = timeout

	return NewRedisCacheFromClient(redis.NewClient(redisOpts), opts.KeyPrefix, timeout, logger)
}

// NewRedisCacheFromClient wraps an existing client. The cache owns the client and closes it.
func NewRedisCacheFromClient(client *redis.Client, prefix string, opTimeout time.Duration, logger *zap.Logger) *RedisCache {
	logger = logging.OrNop(logger)
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}

	c := &RedisCache{
		client:    client,
		prefix:    prefix,
		opTimeout: opTimeout,
		logger:    logger.With(zap.String("component", "redis_cache")),
		counters:  make(map[string]int64),
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn("redis unreachable, cache disabled", zap.Error(err))
		_ = client.Close()
		c.client = nil
		return c
	}

	c.enabled.Store(true)
	c.logger.Info("redis cache connected", zap.String("addr", client.Options().Addr), zap.String("prefix", prefix))
	return c
}

func newDisabledRedisCache(prefix string, opTimeout time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		prefix:    prefix,
		opTimeout: opTimeout,
		logger:    logger.With(zap.String("component", "redis_cache")),
		counters:  make(map[string]int64),
	}
}

// Enabled reports whether the startup ping succeeded
func (c *RedisCache) Enabled() bool {
	return c.enabled.Load() && c.client != nil
}

func (c *RedisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, c.opTimeout)
}

func (c *RedisCache) key(key string) string {
	return prefixed(c.prefix, key)
}

func (c *RedisCache) incr(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

func (c *RedisCache) fail(op, key string, err error) {
	c.incr(op + "Error")
	c.logger.Warn("redis operation failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
}

// Get retrieves a raw payload
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.incr("Get")
	if !c.Enabled() {
		c.incr("GetMiss")
		return nil, false
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	val, err := c.client.Get(qctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.incr("GetMiss")
		return nil, false
	}
	if err != nil {
		c.fail("Get", key, err)
		c.incr("GetMiss")
		return nil, false
	}
	c.incr("GetHit")
	return val, true
}

// Set stores a raw payload. A non-positive TTL stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	c.incr("Set")
	if !c.Enabled() {
		return false
	}
	if ttl < 0 {
		ttl = 0
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if err := c.client.Set(qctx, c.key(key), value, ttl).Err(); err != nil {
		c.fail("Set", key, err)
		return false
	}
	return true
}

// Delete removes a key and reports whether it existed
func (c *RedisCache) Delete(ctx context.Context, key string) bool {
	c.incr("Delete")
	if !c.Enabled() {
		return false
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Del(qctx, c.key(key)).Result()
	if err != nil {
		c.fail("Delete", key, err)
		return false
	}
	return n > 0
}

// DeletePattern removes every key matching the glob using SCAN, so the server is never
// blocked by KEYS. It returns the number of keys actually removed.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) int {
	c.incr("DeletePattern")
	if !c.Enabled() {
		return 0
	}

	match := c.key(pattern)
	var (
		cursor  uint64
		removed int64
	)
	for {
		qctx, cancel := c.queryCtx(ctx)
		keys, next, err := c.client.Scan(qctx, cursor, match, scanBatch).Result()
		if err != nil {
			cancel()
			c.fail("DeletePattern", pattern, err)
			return int(removed)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(qctx, keys...).Result()
			if err != nil {
				cancel()
				c.fail("DeletePattern", pattern, err)
				return int(removed)
			}
			removed += n
		}
		cancel()

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("deleted keys by pattern", zap.String("pattern", match), zap.Int64("count", removed))
	return int(removed)
}

// Exists checks whether a key is present
func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	c.incr("Exists")
	if !c.Enabled() {
		return false
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Exists(qctx, c.key(key)).Result()
	if err != nil {
		c.fail("Exists", key, err)
		return false
	}
	return n > 0
}

// TTL returns remaining seconds, -1 when the key has no expiry and -2 when it is missing
// (or the cache is unavailable).
func (c *RedisCache) TTL(ctx context.Context, key string) int64 {
	c.incr("TTL")
	if !c.Enabled() {
		return -2
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	d, err := c.client.TTL(qctx, c.key(key)).Result()
	if err != nil {
		c.fail("TTL", key, err)
		return -2
	}
	// go-redis passes the -1/-2 replies through unscaled
	if d < 0 {
		return int64(d)
	}
	return int64(d / time.Second)
}

// Stats combines local operation counters with server statistics when reachable
func (c *RedisCache) Stats(ctx context.Context) domain.CacheStats {
	c.mu.Lock()
	counters := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		counters[k] = v
	}
	c.mu.Unlock()

	stats := domain.CacheStats{
		Enabled:  c.Enabled(),
		Backend:  "redis",
		Hits:     counters["GetHit"],
		Misses:   counters["GetMiss"],
		Counters: counters,
	}
	if !stats.Enabled {
		return stats
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	if c.prefix == "" {
		if n, err := c.client.DBSize(qctx).Result(); err == nil {
			stats.Keys = n
		}
	} else {
		stats.Keys = c.countKeys(qctx, c.key("*"))
	}

	if info, err := c.client.Info(qctx, "stats", "memory").Result(); err == nil {
		fields := parseInfo(info)
		if v, err := strconv.ParseInt(fields["keyspace_hits"], 10, 64); err == nil {
			stats.Hits = v
		}
		if v, err := strconv.ParseInt(fields["keyspace_misses"], 10, 64); err == nil {
			stats.Misses = v
		}
		stats.MemoryUsed = fields["used_memory_human"]
	}
	return stats
}

func (c *RedisCache) countKeys(ctx context.Context, match string) int64 {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return total
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return total
		}
	}
}

// Flush removes every key owned by this cache: the prefix namespace when a prefix is set,
// otherwise the whole database.
func (c *RedisCache) Flush(ctx context.Context) int {
	c.incr("Flush")
	if !c.Enabled() {
		return 0
	}
	if c.prefix != "" {
		return c.DeletePattern(ctx, "*")
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.DBSize(qctx).Result()
	if err != nil {
		c.fail("Flush", "*", err)
		return 0
	}
	if err := c.client.FlushDB(qctx).Err(); err != nil {
		c.fail("Flush", "*", err)
		return 0
	}
	return int(n)
}

// Close releases the connection pool
func (c *RedisCache) Close() error {
	c.enabled.Store(false)
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// parseInfo turns an INFO reply into a field map
func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			fields[k] = v
		}
	}
	return fields
}
