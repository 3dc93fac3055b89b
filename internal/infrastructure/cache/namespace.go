package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

const namespaceLayer = "namespace"

// Namespace is the cache-aside helper for read paths that return serialized data.
// Keys have the form "{resource}:{version}:{suffix}". Bumping version orphans every
// entry written under the old layout.
//
// Unlike Memoize, a fetch that finds nothing is not cached.
type Namespace struct {
	store      domain.CacheRepository
	codec      Codec
	resource   string
	version    string
	defaultTTL time.Duration
	observer   Observer
	logger     *zap.Logger
}

// NamespaceOption configures a Namespace
type NamespaceOption func(*Namespace)

// WithDefaultTTL sets the TTL used when GetOrSet is called with ttl <= 0
func WithDefaultTTL(d time.Duration) NamespaceOption {
	return func(n *Namespace) { n.defaultTTL = d }
}

// WithObserver reports hits and misses to o
func WithObserver(o Observer) NamespaceOption {
	return func(n *Namespace) { n.observer = observerOrNop(o) }
}

// WithLogger sets the logger for serialization warnings
func WithLogger(l *zap.Logger) NamespaceOption {
	return func(n *Namespace) { n.logger = logging.OrNop(l) }
}

// NewNamespace creates a helper scoped to resource and version
func NewNamespace(store domain.CacheRepository, codec Codec, resource, version string, opts ...NamespaceOption) *Namespace {
	if codec == nil {
		codec = JSONCodec{}
	}
	n := &Namespace{
		store:      store,
		codec:      codec,
		resource:   resource,
		version:    version,
		defaultTTL: 5 * time.Minute,
		observer:   nopObserver{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With(zap.String("namespace", JoinKey(resource, version)))
	return n
}

// Key returns the full key for suffix
func (n *Namespace) Key(suffix string) string {
	return JoinKey(n.resource, n.version, suffix)
}

// Fetcher loads the live value for a key suffix. found=false means there is nothing.
type Fetcher[T any] func(ctx context.Context) (T, bool, error)

// Serializer converts a live value into the form that is cached and returned
type Serializer[T, S any] func(T) (S, error)

// GetOrSet returns the cached serialized value for suffix, or fetches, serializes, stores
// and returns it. Fetch errors propagate. Serialization failures are logged and reported
// as "nothing" so the caller computes fresh data instead.
func GetOrSet[T, S any](ctx context.Context, n *Namespace, suffix string, fetch Fetcher[T], serialize Serializer[T, S], ttl time.Duration) (S, bool, error) {
	var zero S
	key := n.Key(suffix)

	if data, ok := n.store.Get(ctx, key); ok {
		cached, found, err := DecodeValue[S](n.codec, data)
		if err == nil && found {
			n.observer.CacheHit(namespaceLayer)
			return cached, true, nil
		}
		n.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		n.store.Delete(ctx, key)
	}
	n.observer.CacheMiss(namespaceLayer)

	live, found, err := fetch(ctx)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}

	serialized, err := serialize(live)
	if err != nil {
		n.logger.Warn("serialization failed", zap.String("key", key), zap.Error(err))
		return zero, false, nil
	}
	data, err := EncodeValue(n.codec, serialized, true)
	if err != nil {
		n.logger.Warn("serialization failed", zap.String("key", key), zap.Error(err))
		return zero, false, nil
	}

	if ttl <= 0 {
		ttl = n.defaultTTL
	}
	n.store.Set(ctx, key, data, ttl)
	return serialized, true, nil
}

// Invalidate deletes the composed key of each suffix and returns how many existed
func (n *Namespace) Invalidate(ctx context.Context, suffixes ...string) int {
	removed := 0
	for _, suffix := range suffixes {
		if n.store.Delete(ctx, n.Key(suffix)) {
			removed++
		}
	}
	return removed
}

// InvalidatePattern deletes every key of this namespace whose suffix matches glob
func (n *Namespace) InvalidatePattern(ctx context.Context, glob string) int {
	return n.store.DeletePattern(ctx, n.Key(glob))
}
