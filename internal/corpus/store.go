package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spigell/resume-forge/internal/embedding"

	"golang.org/x/sync/errgroup"
)

const defaultWarmParallelism = 4

// Store owns the loaded units and their embedding cache. Units keep their
// insertion order; embeddings are computed lazily, at most once per unit.
type Store struct {
	provider embedding.Provider

	units []*Unit
	byID  map[string]*Unit

	mu       sync.Mutex
	cache    map[string][]float64
	inflight map[string]chan struct{}
}

// New creates an empty store bound to the given provider. A nil provider is
// allowed for loads that never touch embeddings, such as corpus validation.
func New(provider embedding.Provider) *Store {
	return &Store{
		provider: provider,
		byID:     make(map[string]*Unit),
		cache:    make(map[string][]float64),
		inflight: make(map[string]chan struct{}),
	}
}

// Add appends a unit, rejecting duplicate identifiers.
func (s *Store) Add(unit *Unit) error {
	if unit == nil {
		return errors.New("unit is required")
	}
	if _, ok := s.byID[unit.ID]; ok {
		return fmt.Errorf("duplicate unit id %q", unit.ID)
	}
	s.byID[unit.ID] = unit
	s.units = append(s.units, unit)
	return nil
}

func (s *Store) Len() int {
	return len(s.units)
}

func (s *Store) FindByID(id string) *Unit {
	return s.byID[id]
}

// Units returns units in insertion order. With categories given, only matching
// units are returned. The result is a fresh slice on every call.
func (s *Store) Units(categories ...Category) []*Unit {
	if len(categories) == 0 {
		return append([]*Unit(nil), s.units...)
	}

	wanted := make(map[Category]bool, len(categories))
	for _, category := range categories {
		wanted[category] = true
	}

	units := make([]*Unit, 0, len(s.units))
	for _, unit := range s.units {
		if wanted[unit.Category] {
			units = append(units, unit)
		}
	}
	return units
}

// CountByCategory reports how many units each category holds.
func (s *Store) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, unit := range s.units {
		counts[unit.Category]++
	}
	return counts
}

// Embedding returns the cached vector for the unit, computing it on first use.
// Concurrent callers for the same unit share a single provider call: the first
// one computes, the rest wait for the result. A provider failure populates
// nothing, so the next caller starts fresh.
func (s *Store) Embedding(ctx context.Context, unit *Unit) ([]float64, error) {
	if unit == nil {
		return nil, errors.New("unit is required")
	}

	for {
		s.mu.Lock()
		if vector, ok := s.cache[unit.ID]; ok {
			s.mu.Unlock()
			return vector, nil
		}

		if wait, ok := s.inflight[unit.ID]; ok {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-wait:
			}
			continue
		}

		if s.provider == nil {
			s.mu.Unlock()
			return nil, errors.New("embedding provider is not configured")
		}

		done := make(chan struct{})
		s.inflight[unit.ID] = done
		s.mu.Unlock()

		vectors, err := s.provider.Embed(ctx, []string{unit.Text})
		if err == nil && len(vectors) != 1 {
			err = fmt.Errorf("provider returned %d vectors for one text", len(vectors))
		}

		s.mu.Lock()
		delete(s.inflight, unit.ID)
		if err == nil {
			s.cache[unit.ID] = vectors[0]
		}
		s.mu.Unlock()
		close(done)

		if err != nil {
			return nil, fmt.Errorf("embedding unit %s: %w", unit.ID, err)
		}
	}
}

// Cached reports whether the unit already has a computed embedding.
func (s *Store) Cached(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[id]
	return ok
}

// Warm computes embeddings for every unit ahead of matching. Cancellation stops
// outstanding work but keeps whatever was already cached.
func (s *Store) Warm(ctx context.Context, parallelism int) error {
	if parallelism <= 0 {
		parallelism = defaultWarmParallelism
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	for _, unit := range s.units {
		group.Go(func() error {
			_, err := s.Embedding(ctx, unit)
			return err
		})
	}

	return group.Wait()
}
