package cachemanager

import (
	"context"
	"sync"
	"time"
)

// flight is a load in progress. Callers that miss on the same key wait for
// it instead of loading again.
type flight[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// ReadThroughCache loads a value through fn on a miss and stores it.
// Concurrent misses on one key share a single load. Failed loads are not
// cached.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool

	mu       sync.Mutex
	inflight map[K]*flight[V]
}

func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
		inflight:        make(map[K]*flight[V]),
	}
}

// Get returns the cached value for key or loads it from input.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}
	return r.load(ctx, key, input, ttl)
}

// GetWithRefresh is Get that also extends the ttl of a cached value.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return value, nil
	}
	return r.load(ctx, key, input, ttl)
}

func (r *ReadThroughCache[K, V, I]) load(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	r.mu.Lock()
	if f, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		select {
		case <-f.done:
			return f.value, f.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	f := &flight[V]{done: make(chan struct{})}
	r.inflight[key] = f
	r.mu.Unlock()

	f.value, f.err = r.fn(ctx, input)
	if f.err == nil {
		r.cache.Set(ctx, key, f.value, ttl)
	}

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	close(f.done)

	return f.value, f.err
}

// Invalidate drops cached values so the next Get reloads them. With no keys
// the whole cache is flushed.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	if len(keys) == 0 {
		return r.cache.Flush(ctx)
	}
	return r.cache.Delete(ctx, keys...)
}
