// Package memory keeps enriched entries in process memory, optionally bounded
// by an LRU policy.
package memory

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T

	bounded *lru.Cache[string, T]
}

// New creates a store. size <= 0 means unbounded; otherwise the least
// recently used entries are evicted beyond size.
func New[T any](size int) (*Store[T], error) {
	if size <= 0 {
		return &Store[T]{items: map[string]T{}}, nil
	}

	bounded, err := lru.New[string, T](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Store[T]{bounded: bounded}, nil
}

func (s *Store[T]) Get(_ context.Context, id string) (T, bool, error) {
	if s.bounded != nil {
		v, ok := s.bounded.Get(id)
		return v, ok, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok, nil
}

func (s *Store[T]) Put(_ context.Context, id string, value T) error {
	if s.bounded != nil {
		s.bounded.Add(id, value)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = value
	return nil
}

func (s *Store[T]) Len() int {
	if s.bounded != nil {
		return s.bounded.Len()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
