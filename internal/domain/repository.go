package domain

import (
	"context"
	"time"
)

// CacheRepository is the contract of the networked key-value cache.
// Implementations never return errors: a failed operation is a miss or a no-op.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	// DeletePattern removes every key matching a glob and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) int
	Exists(ctx context.Context, key string) bool
	// TTL returns the remaining seconds, -1 for a key without expiry and -2 for a missing key.
	TTL(ctx context.Context, key string) int64
	Stats(ctx context.Context) CacheStats
	// Flush removes every key owned by this cache and returns how many were removed.
	Flush(ctx context.Context) int
	Enabled() bool
}

// CacheStats is a point-in-time view of the cache for administrators
type CacheStats struct {
	Enabled    bool             `json:"enabled"`
	Backend    string           `json:"backend"`
	Keys       int64            `json:"keys"`
	Hits       int64            `json:"hits"`
	Misses     int64            `json:"misses"`
	MemoryUsed string           `json:"memoryUsed,omitempty"`
	Counters   map[string]int64 `json:"counters"`
}

// PriceSourceRepository persists PriceSource configuration
type PriceSourceRepository interface {
	Create(ctx context.Context, source *PriceSource) error
	Update(ctx context.Context, source *PriceSource) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*PriceSource, error)
	GetByName(ctx context.Context, name string) (*PriceSource, error)
	List(ctx context.Context, activeOnly bool) ([]PriceSource, error)
	ListByIDs(ctx context.Context, ids []int64, activeOnly bool) ([]PriceSource, error)
}

// ScrapedPriceRepository persists the append-only scrape history
type ScrapedPriceRepository interface {
	Create(ctx context.Context, price *ScrapedPrice) error
	// Latest returns the most recent record for the pair, or ErrNotFound when there is none.
	Latest(ctx context.Context, ingredient string, sourceID int64) (*ScrapedPrice, error)
	ListSince(ctx context.Context, ingredient string, since time.Time) ([]ScrapedPrice, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PriceScraper fetches and parses one source for one ingredient
type PriceScraper interface {
	ScrapeOne(ctx context.Context, ingredient string, source *PriceSource) ScrapeOutcome
}
