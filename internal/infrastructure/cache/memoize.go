package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

const memoizeLayer = "memoize"

// Computation is a cacheable function. found=false means the result is legitimately
// "nothing"; that fact is cached too. Errors are never cached.
type Computation[A, R any] func(ctx context.Context, args A) (R, bool, error)

// KeyFunc encodes the arguments of a call. Receivers are not part of A: bind them in
// the computation closure so every instance shares the same cache slot.
type KeyFunc[A any] func(args A) KeyArgs

// MemoizeOptions configures a Memoized computation
type MemoizeOptions struct {
	Prefix   string
	TTL      time.Duration
	Observer Observer
	Logger   *zap.Logger
}

// Memoized is a computation wrapped with cache-aside semantics.
// Concurrent misses on the same key may both compute; the last write wins.
type Memoized[A, R any] struct {
	store    domain.CacheRepository
	codec    Codec
	prefix   string
	ttl      time.Duration
	keyFn    KeyFunc[A]
	fn       Computation[A, R]
	observer Observer
	logger   *zap.Logger
}

// Memoize wraps fn so repeated calls with the same key arguments within the TTL are
// served from the store.
func Memoize[A, R any](store domain.CacheRepository, codec Codec, opts MemoizeOptions, keyFn KeyFunc[A], fn Computation[A, R]) *Memoized[A, R] {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Memoized[A, R]{
		store:    store,
		codec:    codec,
		prefix:   opts.Prefix,
		ttl:      opts.TTL,
		keyFn:    keyFn,
		fn:       fn,
		observer: observerOrNop(opts.Observer),
		logger:   logging.OrNop(opts.Logger).With(zap.String("memoize", opts.Prefix)),
	}
}

// Key returns the cache key used for args
func (m *Memoized[A, R]) Key(args A) string {
	return BuildKey(m.prefix, m.keyFn(args))
}

// Call returns the cached result for args, or computes, stores and returns it.
func (m *Memoized[A, R]) Call(ctx context.Context, args A) (R, bool, error) {
	key := m.Key(args)

	if data, ok := m.store.Get(ctx, key); ok {
		value, found, err := DecodeValue[R](m.codec, data)
		if err == nil {
			m.observer.CacheHit(memoizeLayer)
			return value, found, nil
		}
		m.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		m.store.Delete(ctx, key)
	}
	m.observer.CacheMiss(memoizeLayer)

	value, found, err := m.fn(ctx, args)
	if err != nil {
		var zero R
		return zero, false, err
	}

	data, err := EncodeValue(m.codec, value, found)
	if err != nil {
		m.logger.Warn("result not cached", zap.String("key", key), zap.Error(err))
		return value, found, nil
	}
	m.store.Set(ctx, key, data, m.ttl)
	return value, found, nil
}

// Invalidate drops the cached result for args
func (m *Memoized[A, R]) Invalidate(ctx context.Context, args A) bool {
	return m.store.Delete(ctx, m.Key(args))
}

// InvalidateAll drops every cached result under this prefix
func (m *Memoized[A, R]) InvalidateAll(ctx context.Context) int {
	return m.store.DeletePattern(ctx, JoinKey(m.prefix, "*"))
}
