package docstore

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a map-backed Store used by unit tests. Safe for
// concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		collections: map[string]map[string]map[string]any{},
	}
}

func (s *InMemoryStore) Get(_ context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *InMemoryStore) Upsert(_ context.Context, collection, id string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]map[string]any{}
	}
	existing, ok := s.collections[collection][id]
	if !ok || !merge {
		s.collections[collection][id] = copyDoc(fields)
		return nil
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *InMemoryStore) ListIDs(_ context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
