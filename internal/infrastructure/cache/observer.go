package cache

// Observer receives hit/miss notifications from the cache-aside helpers.
// metrics.Collector satisfies it.
type Observer interface {
	CacheHit(layer string)
	CacheMiss(layer string)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)  {}
func (nopObserver) CacheMiss(string) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
