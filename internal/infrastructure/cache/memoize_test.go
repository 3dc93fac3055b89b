package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *countingObserver) CacheHit(layer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[layer]++
}

func (o *countingObserver) CacheMiss(layer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses[layer]++
}

type lookup struct {
	Ingredient string
}

func lookupKey(a lookup) KeyArgs { return Args(a.Ingredient) }

func TestMemoize_ComputesOnceWithinTTL(t *testing.T) {
	store := NewMemoryCache("")
	defer store.Close()
	obs := newCountingObserver()
	calls := 0

	m := Memoize(store, nil, MemoizeOptions{Prefix: "price_compare", TTL: time.Minute, Observer: obs}, lookupKey,
		func(ctx context.Context, a lookup) (int, bool, error) {
			calls++
			return 42, true, nil
		})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, found, err := m.Call(ctx, lookup{Ingredient: "rice"})
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 42, v)
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, obs.hits[memoizeLayer])
	assert.Equal(t, 1, obs.misses[memoizeLayer])
	assert.Equal(t, "price_compare:rice", m.Key(lookup{Ingredient: "rice"}))
}

func TestMemoize_Invalidate(t *testing.T) {
	store := NewMemoryCache("")
	defer store.Close()
	calls := 0

	m := Memoize(store, JSONCodec{}, MemoizeOptions{Prefix: "price_compare", TTL: time.Minute}, lookupKey,
		func(ctx context.Context, a lookup) (string, bool, error) {
			calls++
			return a.Ingredient, true, nil
		})

	ctx := context.Background()
	_, _, _ = m.Call(ctx, lookup{Ingredient: "rice"})
	_, _, _ = m.Call(ctx, lookup{Ingredient: "beans"})
	assert.Equal(t, 2, calls)

	assert.True(t, m.Invalidate(ctx, lookup{Ingredient: "rice"}))
	_, _, _ = m.Call(ctx, lookup{Ingredient: "rice"})
	_, _, _ = m.Call(ctx, lookup{Ingredient: "beans"})
	assert.Equal(t, 3, calls, "only the invalidated key is recomputed")

	assert.Equal(t, 2, m.InvalidateAll(ctx))
	_, _, _ = m.Call(ctx, lookup{Ingredient: "beans"})
	assert.Equal(t, 4, calls)
}

func TestMemoize_CachesNothing(t *testing.T) {
	store := NewMemoryCache("")
	defer store.Close()
	calls := 0

	m := Memoize(store, MsgpackCodec{}, MemoizeOptions{Prefix: "lookup", TTL: time.Minute}, lookupKey,
		func(ctx context.Context, a lookup) (*string, bool, error) {
			calls++
			return nil, false, nil
		})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		v, found, err := m.Call(ctx, lookup{Ingredient: "saffron"})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, v)
	}
	assert.Equal(t, 1, calls)

	raw, ok := store.Get(ctx, "lookup:saffron")
	require.True(t, ok)
	assert.Equal(t, NullSentinel, string(raw))
}

func TestMemoize_ErrorsAreNotCached(t *testing.T) {
	store := NewMemoryCache("")
	defer store.Close()
	calls := 0
	boom := errors.New("boom")

	m := Memoize(store, nil, MemoizeOptions{Prefix: "p", TTL: time.Minute}, lookupKey,
		func(ctx context.Context, a lookup) (int, bool, error) {
			calls++
			if calls == 1 {
				return 0, false, boom
			}
			return 7, true, nil
		})

	ctx := context.Background()
	_, _, err := m.Call(ctx, lookup{Ingredient: "rice"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.Exists(ctx, "p:rice"))

	v, found, err := m.Call(ctx, lookup{Ingredient: "rice"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestMemoize_CorruptEntryIsRecomputed(t *testing.T) {
	store := NewMemoryCache("")
	defer store.Close()
	ctx := context.Background()
	store.Set(ctx, "p:rice", []byte("{broken"), time.Minute)

	m := Memoize(store, nil, MemoizeOptions{Prefix: "p", TTL: time.Minute}, lookupKey,
		func(ctx context.Context, a lookup) (int, bool, error) { return 1, true, nil })

	v, found, err := m.Call(ctx, lookup{Ingredient: "rice"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)

	raw, ok := store.Get(ctx, "p:rice")
	require.True(t, ok)
	assert.Equal(t, "1", string(raw))
}

func TestMemoize_DisabledStoreAlwaysComputes(t *testing.T) {
	store := NewRedisCache(RedisOptions{URL: "::bad::"}, nil)
	calls := 0

	m := Memoize(store, nil, MemoizeOptions{Prefix: "p", TTL: time.Minute}, lookupKey,
		func(ctx context.Context, a lookup) (int, bool, error) {
			calls++
			return calls, true, nil
		})

	ctx := context.Background()
	v1, _, err := m.Call(ctx, lookup{Ingredient: "rice"})
	require.NoError(t, err)
	v2, _, err := m.Call(ctx, lookup{Ingredient: "rice"})
	require.NoError(t, err)

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}
