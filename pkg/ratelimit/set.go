package ratelimit

import (
	"context"
	"sync"
)

// Set holds one Limiter per provider.
type Set struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	opts     []Option
}

// NewSet creates an empty set; opts are applied to every limiter it registers.
func NewSet(opts ...Option) *Set {
	return &Set{limiters: make(map[string]*Limiter), opts: opts}
}

// Register creates (or replaces) the limiter for name.
func (s *Set) Register(name string, maxRequests int, opts ...Option) *Limiter {
	all := append(append([]Option(nil), s.opts...), opts...)
	l := New(maxRequests, all...)
	s.mu.Lock()
	s.limiters[name] = l
	s.mu.Unlock()
	return l
}

// Get returns the limiter registered for name.
func (s *Set) Get(name string) (*Limiter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.limiters[name]
	return l, ok
}

// Acquire waits on the named provider's limiter. Unknown providers are admitted immediately.
func (s *Set) Acquire(ctx context.Context, name string) error {
	l, ok := s.Get(name)
	if !ok {
		return ctx.Err()
	}
	return l.Acquire(ctx)
}
