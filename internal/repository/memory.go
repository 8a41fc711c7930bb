package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sc2371/afterschool-booking/internal/models"
)

// MemoryStore implements CapacityStore with in-memory storage. A single
// mutex serializes commits, which gives the per-lesson ordering guarantee
// for free. Used when no database is configured, and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	lessons map[string]models.Lesson
	orders  map[string]models.Order
}

// NewMemoryStore creates a memory store holding the given lessons.
func NewMemoryStore(lessons ...models.Lesson) *MemoryStore {
	s := &MemoryStore{
		lessons: make(map[string]models.Lesson, len(lessons)),
		orders:  make(map[string]models.Order),
	}
	for _, l := range lessons {
		s.lessons[l.ID] = l
	}
	return s
}

// SeedLessons returns the default catalog used when running without a
// database. IDs are generated fresh on every start.
func SeedLessons() []models.Lesson {
	subjects := []struct {
		subject  string
		location string
		price    float64
		space    int
		image    string
	}{
		{"Math", "London", 100, 5, "/images/math.webp"},
		{"English", "Bristol", 80, 5, "/images/english.webp"},
		{"Music", "Manchester", 90, 5, "/images/music.webp"},
		{"Art", "Liverpool", 70, 5, "/images/art.webp"},
		{"Science", "Oxford", 120, 5, "/images/science.webp"},
		{"Drama", "Cambridge", 60, 5, "/images/drama.webp"},
		{"Chess", "York", 50, 5, "/images/chess.webp"},
		{"Coding", "Leeds", 150, 5, "/images/coding.webp"},
		{"Dance", "Brighton", 85, 5, "/images/dance.webp"},
		{"Football", "Newcastle", 40, 5, "/images/football.webp"},
	}

	lessons := make([]models.Lesson, 0, len(subjects))
	for _, s := range subjects {
		lessons = append(lessons, models.Lesson{
			ID:       uuid.NewString(),
			Subject:  s.subject,
			Location: s.location,
			Price:    s.price,
			Space:    s.space,
			Image:    s.image,
		})
	}
	return lessons
}

func (s *MemoryStore) GetLessons(ctx context.Context, ids []string) (map[string]models.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]models.Lesson, len(ids))
	for _, id := range ids {
		if l, ok := s.lessons[id]; ok {
			result[id] = l
		}
	}
	return result, nil
}

func (s *MemoryStore) CommitReservation(ctx context.Context, decrements []Decrement, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every decrement before touching anything, so a late
	// conflict leaves no partial state behind.
	for _, d := range decrements {
		l, ok := s.lessons[d.LessonID]
		if !ok || l.Space < d.Quantity {
			return &ConflictError{LessonID: d.LessonID}
		}
	}

	for _, d := range decrements {
		l := s.lessons[d.LessonID]
		l.Space -= d.Quantity
		s.lessons[d.LessonID] = l
	}
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *MemoryStore) AdjustCapacity(ctx context.Context, id string, delta int) (*models.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lessons[id]
	if !ok {
		return nil, ErrLessonNotFound
	}
	if l.Space+delta < 0 {
		return nil, &ConflictError{LessonID: id}
	}
	l.Space += delta
	s.lessons[id] = l
	return &l, nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *MemoryStore) GetAllLessons(ctx context.Context) ([]models.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lessons := make([]models.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		lessons = append(lessons, l)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Subject < lessons[j].Subject })
	return lessons, nil
}

func (s *MemoryStore) SearchLessons(ctx context.Context, term string) ([]models.Lesson, error) {
	all, err := s.GetAllLessons(ctx)
	if err != nil {
		return nil, err
	}
	if term == "" {
		return all, nil
	}

	term = strings.ToLower(term)
	matched := make([]models.Lesson, 0, len(all))
	for _, l := range all {
		if strings.Contains(strings.ToLower(l.Subject), term) ||
			strings.Contains(strings.ToLower(l.Location), term) ||
			strings.Contains(strconv.FormatFloat(l.Price, 'f', -1, 64), term) ||
			strings.Contains(strconv.Itoa(l.Space), term) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
