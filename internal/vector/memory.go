package vector

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
)

type memoryCollection struct {
	dims    uint
	records map[string]*Record
}

// MemoryStore is an in-process Store with brute-force cosine search.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
	}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, name string, dims uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &memoryCollection{
		dims:    dims,
		records: make(map[string]*Record),
	}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, records ...*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrCollectionNotFound, collection)
	}

	for _, r := range records {
		if c.dims > 0 && uint(len(r.Vector)) != c.dims {
			return fmt.Errorf("%w: record '%s' has %d, expected %d", ErrDimensionMismatch, r.ID, len(r.Vector), c.dims)
		}
	}
	for _, r := range records {
		stored := *r
		stored.Vector = slices.Clone(r.Vector)
		c.records[r.ID] = &stored
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, params *QueryParams) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[params.collection]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrCollectionNotFound, params.collection)
	}
	if c.dims > 0 && uint(len(params.query)) != c.dims {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(params.query), c.dims)
	}

	matches := make([]*Match, 0, len(c.records))
	for _, r := range c.records {
		if params.namespace != "" && r.Namespace != params.namespace {
			continue
		}
		m := &Match{
			ID:    r.ID,
			Score: cosine(params.query, r.Vector),
		}
		if params.withPayload {
			m.Metadata = r.Metadata
		}
		matches = append(matches, m)
	}

	slices.SortFunc(matches, func(a, b *Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if uint(len(matches)) > params.limit {
		matches = matches[:params.limit]
	}
	return matches, nil
}

// Len returns the number of records in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0
	}
	return len(c.records)
}

func (s *MemoryStore) Close() error {
	return nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
