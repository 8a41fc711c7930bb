package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sc2371/afterschool-booking/internal/models"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrOrderNotFound  = errors.New("order not found")
)

// ConflictError reports that a conditional capacity change lost the race:
// at apply time the lesson no longer had enough space (or, for an
// administrative adjustment, the delta would have taken it negative).
type ConflictError struct {
	LessonID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("capacity conflict on lesson %s", e.LessonID)
}

// StorageError wraps a storage-layer failure (connection lost, query
// timed out). Callers may retry a bounded number of times; the wrapped
// cause is never shown to end users.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Decrement is a single capacity reduction inside a reservation commit.
type Decrement struct {
	LessonID string
	Quantity int
}

// CapacityStore is the persistence boundary for lessons and the order
// ledger. Implementations own all locking/transaction discipline: two
// concurrent CommitReservation calls touching the same lesson must never
// both act on a stale space value.
type CapacityStore interface {
	// GetLessons returns the requested lessons keyed by ID. IDs that do
	// not exist are simply absent from the result.
	GetLessons(ctx context.Context, ids []string) (map[string]models.Lesson, error)

	// CommitReservation applies every decrement and appends the order as
	// one atomic unit. Each decrement only applies if the lesson still
	// has space >= quantity at apply time; otherwise nothing is applied
	// and a *ConflictError names the losing lesson.
	CommitReservation(ctx context.Context, decrements []Decrement, order *models.Order) error

	// AdjustCapacity changes a lesson's space by delta (restock or manual
	// correction), refusing with *ConflictError if the result would be
	// negative. Returns the lesson after the change.
	AdjustCapacity(ctx context.Context, id string, delta int) (*models.Lesson, error)

	// GetOrder reads one order back from the ledger.
	GetOrder(ctx context.Context, id string) (*models.Order, error)

	// Catalog reads.
	GetAllLessons(ctx context.Context) ([]models.Lesson, error)
	SearchLessons(ctx context.Context, term string) ([]models.Lesson, error)
}
