// Package cache implements the key-value cache client, its codecs and the cache-aside
// helpers (Memoize and Namespace) built on top of it.
package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
)

// Store is a domain.CacheRepository that owns resources released by Close
type Store interface {
	domain.CacheRepository
	Close() error
}

// Options selects and configures a Store
type Options struct {
	Type      string // "redis" or "memory"
	RedisURL  string
	KeyPrefix string
	OpTimeout time.Duration
}

// NewStore builds the configured backend. An unreachable Redis is not an error: the
// returned store is disabled and reports Enabled() == false.
func NewStore(opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Type {
	case "memory":
		return NewMemoryCache(opts.KeyPrefix), nil
	case "", "redis":
		return NewRedisCache(RedisOptions{
			URL:       opts.RedisURL,
			KeyPrefix: opts.KeyPrefix,
			OpTimeout: opts.OpTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", opts.Type)
	}
}
