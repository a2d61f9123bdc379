package client

import (
	"context"
	"net/http"
	"slices"
	"sync"
)

// Store caches one REST resource collection, such as /accounts or /bills.
// Every successful call writes its result into the cache; the last write
// wins.
type Store[T any] struct {
	client *Client
	path   string
	id     func(T) string

	mu    sync.RWMutex
	items map[string]T
	order []string
}

// NewStore creates a store for the collection at path. id extracts the
// record ID used as cache key.
func NewStore[T any](c *Client, path string, id func(T) string) *Store[T] {
	return &Store[T]{
		client: c,
		path:   path,
		id:     id,
		items:  make(map[string]T),
	}
}

// Fetch loads the whole collection and replaces the cache.
func (s *Store[T]) Fetch(ctx context.Context) ([]T, error) {
	var list []T
	if err := s.client.Do(ctx, http.MethodGet, s.path, nil, &list); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(list))
	s.order = s.order[:0]
	for _, v := range list {
		s.putLocked(v)
	}
	return list, nil
}

// Get loads a single record and caches it. A 404 evicts the cached copy.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	if err := s.client.Do(ctx, http.MethodGet, s.path+"/"+id, nil, &v); err != nil {
		if IsNotFound(err) {
			s.evict(id)
		}
		return v, err
	}
	s.put(v)
	return v, nil
}

// Create posts body and caches the created record.
func (s *Store[T]) Create(ctx context.Context, body any) (T, error) {
	var v T
	if err := s.client.Do(ctx, http.MethodPost, s.path, body, &v); err != nil {
		return v, err
	}
	s.put(v)
	return v, nil
}

// Update sends a partial update and caches the result.
func (s *Store[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	var v T
	if err := s.client.Do(ctx, http.MethodPut, s.path+"/"+id, patch, &v); err != nil {
		return v, err
	}
	s.put(v)
	return v, nil
}

// Delete removes the record on the server and from the cache.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if err := s.client.Do(ctx, http.MethodDelete, s.path+"/"+id, nil, nil); err != nil && !IsNotFound(err) {
		return err
	}
	s.evict(id)
	return nil
}

// Cached returns the cached copy of id without a request.
func (s *Store[T]) Cached(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok
}

// Items returns the cached records in server order followed by records
// added since the last Fetch.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Store[T]) put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(v)
}

func (s *Store[T]) putLocked(v T) {
	id := s.id(v)
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = v
}

func (s *Store[T]) evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
}
