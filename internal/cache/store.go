package cache

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/syncx"
)

// Store memoizes command results in process memory with per-class TTLs.
// Concurrent misses for one key share a single fetch.
type Store struct {
	cache  *collection.Cache
	flight syncx.SingleFlight
	ttl    TTLSet
}

// NewStore builds a Store. Entries default to the price TTL.
func NewStore(ttl TTLSet) (*Store, error) {
	c, err := collection.NewCache(ttl.Price, collection.WithName(Namespace), collection.WithLimit(1024))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Store{cache: c, flight: syncx.NewSingleFlight(), ttl: ttl}, nil
}

// TTL returns the configured TTL set.
func (s *Store) TTL() TTLSet { return s.ttl }

// Take returns the cached value for key or runs fetch and caches its result
// for the class TTL. Errors are never cached.
func (s *Store) Take(key string, class TTLClass, fetch func() (any, error)) (any, error) {
	if s == nil {
		return fetch()
	}
	ttl := s.ttl.Duration(class)
	if ttl <= 0 {
		return fetch()
	}
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}
	return s.flight.Do(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		s.cache.SetWithExpire(key, v, ttl)
		return v, nil
	})
}

// Del drops key.
func (s *Store) Del(key string) {
	s.cache.Del(key)
}

// Take is Store.Take with a typed result.
func Take[T any](s *Store, key string, class TTLClass, fetch func() (T, error)) (T, error) {
	v, err := s.Take(key, class, func() (any, error) { return fetch() })
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}
	return out, nil
}
