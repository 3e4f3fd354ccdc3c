package preview

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore serves recently written or read previews from memory and
// delegates everything else to the wrapped store.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, string]
}

// NewCachedStore wraps next with an LRU of the given size.
func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if next == nil {
		return nil, fmt.Errorf("backing store is required")
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("init preview cache: %w", err)
	}

	return &CachedStore{next: next, cache: cache}, nil
}

// Put writes through to the backing store, then caches html.
func (s *CachedStore) Put(ctx context.Context, projectID, html string) error {
	if err := s.next.Put(ctx, projectID, html); err != nil {
		s.cache.Remove(projectID)
		return err
	}
	s.cache.Add(projectID, html)

	return nil
}

// Get returns the cached copy when present.
func (s *CachedStore) Get(ctx context.Context, projectID string) (string, error) {
	if html, ok := s.cache.Get(projectID); ok {
		return html, nil
	}
	html, err := s.next.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	s.cache.Add(projectID, html)

	return html, nil
}

// Len reports the number of cached previews.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
