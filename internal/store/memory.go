package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps catalogs in process memory. Returned catalogs are
// copies.
type MemoryStore struct {
	mu    sync.RWMutex
	order []uuid.UUID
	byID  map[uuid.UUID]*Catalog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]*Catalog)}
}

func (s *MemoryStore) CreateCatalog(_ context.Context, c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID] = cloneCatalog(c)
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryStore) GetCatalog(_ context.Context, id uuid.UUID) (*Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneCatalog(c), nil
}

// ListCatalogs returns newest first.
func (s *MemoryStore) ListCatalogs(_ context.Context, limit int) ([]*Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Catalog
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneCatalog(s.byID[s.order[i]]))
	}
	return out, nil
}

func (s *MemoryStore) DeleteCatalog(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneCatalog(c *Catalog) *Catalog {
	cp := *c
	cp.Criteria = append([]string(nil), c.Criteria...)
	cp.Alternatives = make([]Item, len(c.Alternatives))
	for i, it := range c.Alternatives {
		cp.Alternatives[i] = Item{Label: it.Label, Scores: append([]float64(nil), it.Scores...)}
	}
	return &cp
}
