package service

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sc2371/afterschool-booking/internal/models"
	"github.com/sc2371/afterschool-booking/internal/repository"
)

// CatalogService handles the read-only lesson catalog plus the
// administrative capacity adjustment. A Bloom filter over known lesson
// IDs short-circuits lookups for IDs that definitely do not exist;
// false positives just fall through to the store, so correctness is
// unaffected.
type CatalogService struct {
	store repository.CapacityStore

	mu     sync.RWMutex
	known  *bloom.BloomFilter
	warmed bool
}

// NewCatalogService creates a catalog service on top of the store.
func NewCatalogService(store repository.CapacityStore) *CatalogService {
	return &CatalogService{
		store: store,
		known: bloom.NewWithEstimates(10000, 0.01),
	}
}

// Warm loads every catalog ID into the known-ID filter. The catalog is
// fixed after seeding (there is no create-lesson endpoint), so a single
// warm-up at startup is enough. Until Warm succeeds the filter is not
// consulted and every lookup goes to the store.
func (s *CatalogService) Warm(ctx context.Context) error {
	lessons, err := s.store.GetAllLessons(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lessons {
		s.known.AddString(l.ID)
	}
	s.warmed = true
	return nil
}

// ListLessons returns the whole catalog.
func (s *CatalogService) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	return s.store.GetAllLessons(ctx)
}

// GetLesson returns a single lesson by ID.
func (s *CatalogService) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	if s.definitelyUnknown(id) {
		return nil, repository.ErrLessonNotFound
	}

	lessons, err := s.store.GetLessons(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	l, ok := lessons[id]
	if !ok {
		return nil, repository.ErrLessonNotFound
	}
	return &l, nil
}

// SearchLessons matches the term against subject, location, price and
// space, case-insensitively.
func (s *CatalogService) SearchLessons(ctx context.Context, term string) ([]models.Lesson, error) {
	return s.store.SearchLessons(ctx, term)
}

// AdjustCapacity applies an administrative space change (restock or
// manual correction). The store enforces the floor at zero.
func (s *CatalogService) AdjustCapacity(ctx context.Context, id string, delta int) (*models.Lesson, error) {
	if s.definitelyUnknown(id) {
		return nil, repository.ErrLessonNotFound
	}
	return s.store.AdjustCapacity(ctx, id, delta)
}

func (s *CatalogService) definitelyUnknown(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warmed && !s.known.TestString(id)
}
