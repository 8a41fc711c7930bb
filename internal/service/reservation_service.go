package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sc2371/afterschool-booking/internal/metrics"
	"github.com/sc2371/afterschool-booking/internal/models"
	"github.com/sc2371/afterschool-booking/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// How many times a whole place-order attempt is repeated after a
	// commit-time capacity conflict. Every retry re-reads capacities.
	maxCommitAttempts = 3

	// How many times a transient storage failure is retried before it
	// surfaces to the caller.
	maxStorageRetries = 2

	storageRetryDelay = 50 * time.Millisecond
)

var tracer = otel.Tracer("github.com/sc2371/afterschool-booking/internal/service")

var (
	nameRegex  = regexp.MustCompile(`^[A-Za-z ]+$`)
	phoneRegex = regexp.MustCompile(`^\d{10}$`)
)

// ReservationService validates order requests and performs the atomic
// capacity-decrement plus order-creation operation. All locking lives in
// the store: multiple service instances may run against the same store.
type ReservationService struct {
	store    repository.CapacityStore
	validate *validator.Validate
	metrics  *metrics.Metrics
}

// NewReservationService creates a reservation service on top of the
// given capacity store.
func NewReservationService(store repository.CapacityStore, m *metrics.Metrics) *ReservationService {
	v := validator.New()
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return nameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})

	return &ReservationService{
		store:    store,
		validate: v,
		metrics:  m,
	}
}

// PlaceOrder validates the request, checks availability across every
// requested lesson in one batched read, and commits all decrements plus
// the order record as a single unit. On failure of any kind, no state is
// mutated.
func (s *ReservationService) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	if err := s.validateRequest(req); err != nil {
		s.metrics.OrdersTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ReservationService.PlaceOrder",
		trace.WithAttributes(
			attribute.Int("order.lessons", len(req.LessonIDs)),
			attribute.Int("order.quantity", req.Quantity),
		),
	)
	defer span.End()

	start := time.Now()
	order, err := s.placeOrder(ctx, req)
	s.metrics.PlaceOrderDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		s.metrics.OrdersTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.metrics.OrdersTotal.WithLabelValues("placed").Inc()
	return order, nil
}

func (s *ReservationService) placeOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	// Subject of the lesson that lost the most recent commit race, for
	// the error message when retries run out.
	var conflicted string

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		lessons, err := s.readLessons(ctx, req.LessonIDs)
		if err != nil {
			return nil, err
		}

		for _, id := range req.LessonIDs {
			if _, ok := lessons[id]; !ok {
				return nil, &NotFoundError{LessonID: id}
			}
		}

		// Report every shortfall at once, not just the first.
		var short []string
		for _, id := range req.LessonIDs {
			if lessons[id].Space < req.Quantity {
				short = append(short, lessons[id].Subject)
			}
		}
		if len(short) > 0 {
			return nil, &InsufficientCapacityError{Subjects: short}
		}

		decrements := make([]repository.Decrement, 0, len(req.LessonIDs))
		items := make([]models.OrderItem, 0, len(req.LessonIDs))
		for _, id := range req.LessonIDs {
			decrements = append(decrements, repository.Decrement{LessonID: id, Quantity: req.Quantity})
			items = append(items, models.OrderItem{LessonID: id, Quantity: req.Quantity})
		}

		order := &models.Order{
			ID:          uuid.NewString(),
			Name:        req.Name,
			PhoneNumber: req.PhoneNumber,
			Items:       items,
			CreatedAt:   time.Now().UTC(),
		}

		err = s.withStorageRetry(ctx, func() error {
			return s.store.CommitReservation(ctx, decrements, order)
		})
		if err == nil {
			return order, nil
		}

		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			// A concurrent order got there first. Loop around with a
			// fresh read; stale capacities are never reused.
			s.metrics.CommitConflicts.Inc()
			conflicted = conflict.LessonID
			if l, ok := lessons[conflict.LessonID]; ok {
				conflicted = l.Subject
			}
			continue
		}
		return nil, err
	}

	return nil, &InsufficientCapacityError{Subjects: []string{conflicted}, Conflict: true}
}

// GetOrder reads an order back from the ledger.
func (s *ReservationService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order *models.Order
	err := s.withStorageRetry(ctx, func() error {
		var err error
		order, err = s.store.GetOrder(ctx, id)
		return err
	})
	return order, err
}

func (s *ReservationService) readLessons(ctx context.Context, ids []string) (map[string]models.Lesson, error) {
	var lessons map[string]models.Lesson
	err := s.withStorageRetry(ctx, func() error {
		var err error
		lessons, err = s.store.GetLessons(ctx, ids)
		return err
	})
	return lessons, err
}

// withStorageRetry runs op, retrying transient storage failures a bounded
// number of times. All other errors pass through untouched.
func (s *ReservationService) withStorageRetry(ctx context.Context, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		var serr *repository.StorageError
		if err == nil || !errors.As(err, &serr) || attempt >= maxStorageRetries {
			return err
		}

		s.metrics.StorageRetries.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(storageRetryDelay << attempt):
		}
	}
}

func (s *ReservationService) validateRequest(req models.OrderRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return validationMessage(verrs[0])
		}
		return &ValidationError{Message: "Invalid request."}
	}

	seen := make(map[string]struct{}, len(req.LessonIDs))
	for _, id := range req.LessonIDs {
		if _, dup := seen[id]; dup {
			return &ValidationError{Field: "lessonIDs", Message: fmt.Sprintf("Duplicate lesson ID: %s", id)}
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validationMessage(fe validator.FieldError) *ValidationError {
	if fe.Tag() == "uuid" {
		return &ValidationError{Field: "lessonIDs", Message: fmt.Sprintf("Invalid lesson ID: %v", fe.Value())}
	}

	switch {
	case fe.Field() == "Name":
		return &ValidationError{Field: "name", Message: "Invalid name. Only letters and spaces are allowed."}
	case fe.Field() == "PhoneNumber":
		return &ValidationError{Field: "phoneNumber", Message: "Invalid phone number. Must be exactly 10 digits."}
	case strings.HasPrefix(fe.Field(), "LessonIDs"):
		return &ValidationError{Field: "lessonIDs", Message: "Lesson IDs must be a non-empty array."}
	case fe.Field() == "Quantity":
		if fe.Tag() == "lte" {
			return &ValidationError{Field: "quantity", Message: "Quantity must not exceed 10."}
		}
		return &ValidationError{Field: "quantity", Message: "Quantity must be a positive number."}
	}
	return &ValidationError{Field: fe.Field(), Message: fmt.Sprintf("Invalid value for %s.", fe.Field())}
}

func outcomeLabel(err error) string {
	var (
		notFound     *NotFoundError
		insufficient *InsufficientCapacityError
		storage      *repository.StorageError
	)
	switch {
	case errors.As(err, &insufficient):
		if insufficient.Conflict {
			return "conflict"
		}
		return "insufficient"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &storage):
		return "storage_error"
	}
	return "error"
}
