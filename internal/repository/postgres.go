package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sc2371/afterschool-booking/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var pgTracer = otel.Tracer("github.com/sc2371/afterschool-booking/internal/repository")

// PostgresStore implements CapacityStore on top of Postgres via sqlx.
// The conditional decrement (space = space - n WHERE space >= n) makes
// each commit all-or-nothing without any application-side locking:
// two racing commits on the same lesson serialize on the row lock, and
// the loser sees zero rows affected.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-connected database handle. The
// caller owns the handle's lifecycle (connect before serving, close on
// shutdown).
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const lessonColumns = `id, subject, location, price, space, image`

func (s *PostgresStore) GetLessons(ctx context.Context, ids []string) (map[string]models.Lesson, error) {
	if len(ids) == 0 {
		return map[string]models.Lesson{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+lessonColumns+` FROM lessons WHERE id IN (?)`, ids)
	if err != nil {
		return nil, &StorageError{Op: "get lessons", Err: err}
	}
	query = s.db.Rebind(query)

	var rows []models.Lesson
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &StorageError{Op: "get lessons", Err: err}
	}

	result := make(map[string]models.Lesson, len(rows))
	for _, l := range rows {
		result[l.ID] = l
	}
	return result, nil
}

func (s *PostgresStore) CommitReservation(ctx context.Context, decrements []Decrement, order *models.Order) error {
	ctx, span := pgTracer.Start(ctx, "PostgresStore.CommitReservation")
	span.SetAttributes(attribute.Int("reservation.lessons", len(decrements)))
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin commit", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, d := range decrements {
		res, err := tx.ExecContext(ctx,
			`UPDATE lessons SET space = space - $1 WHERE id = $2 AND space >= $1`,
			d.Quantity, d.LessonID,
		)
		if err != nil {
			return &StorageError{Op: "decrement space", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return &StorageError{Op: "decrement space", Err: err}
		}
		if n == 0 {
			// Lost the race (or the lesson vanished); the deferred
			// rollback undoes any earlier decrements in this commit.
			return &ConflictError{LessonID: d.LessonID}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, name, phone, created_at) VALUES ($1, $2, $3, $4)`,
		order.ID, order.Name, order.PhoneNumber, order.CreatedAt,
	); err != nil {
		return &StorageError{Op: "insert order", Err: err}
	}

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, lesson_id, quantity) VALUES ($1, $2, $3)`,
			order.ID, item.LessonID, item.Quantity,
		); err != nil {
			return &StorageError{Op: "insert order item", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit reservation", Err: err}
	}
	return nil
}

func (s *PostgresStore) AdjustCapacity(ctx context.Context, id string, delta int) (*models.Lesson, error) {
	var lesson models.Lesson
	err := s.db.GetContext(ctx, &lesson,
		`UPDATE lessons SET space = space + $1 WHERE id = $2 AND space + $1 >= 0 RETURNING `+lessonColumns,
		delta, id,
	)
	if err == nil {
		return &lesson, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "adjust capacity", Err: err}
	}

	// No row updated: either the lesson does not exist, or the delta
	// would have taken space negative.
	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $1)`, id,
	); err != nil {
		return nil, &StorageError{Op: "adjust capacity", Err: err}
	}
	if !exists {
		return nil, ErrLessonNotFound
	}
	return nil, &ConflictError{LessonID: id}
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		`SELECT id, name, phone, created_at FROM orders WHERE id = $1`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get order", Err: err}
	}

	if err := s.db.SelectContext(ctx, &order.Items,
		`SELECT lesson_id, quantity FROM order_items WHERE order_id = $1 ORDER BY lesson_id`, id,
	); err != nil {
		return nil, &StorageError{Op: "get order items", Err: err}
	}
	return &order, nil
}

func (s *PostgresStore) GetAllLessons(ctx context.Context) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := s.db.SelectContext(ctx, &lessons,
		`SELECT `+lessonColumns+` FROM lessons ORDER BY subject`,
	); err != nil {
		return nil, &StorageError{Op: "list lessons", Err: err}
	}
	return lessons, nil
}

func (s *PostgresStore) SearchLessons(ctx context.Context, term string) ([]models.Lesson, error) {
	if term == "" {
		return s.GetAllLessons(ctx)
	}

	pattern := "%" + term + "%"
	var lessons []models.Lesson
	if err := s.db.SelectContext(ctx, &lessons,
		`SELECT `+lessonColumns+` FROM lessons
		 WHERE subject ILIKE $1
		    OR location ILIKE $1
		    OR price::text LIKE $1
		    OR space::text LIKE $1
		 ORDER BY subject`,
		pattern,
	); err != nil {
		return nil, &StorageError{Op: "search lessons", Err: err}
	}
	return lessons, nil
}

// InsertLesson adds a lesson to the catalog. Used by the seed path when
// a fresh database comes up empty.
func (s *PostgresStore) InsertLesson(ctx context.Context, l models.Lesson) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, subject, location, price, space, image)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		l.ID, l.Subject, l.Location, l.Price, l.Space, l.Image,
	); err != nil {
		return &StorageError{Op: "insert lesson", Err: err}
	}
	return nil
}

// CountLessons reports the catalog size, used to decide whether to seed.
func (s *PostgresStore) CountLessons(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM lessons`); err != nil {
		return 0, &StorageError{Op: "count lessons", Err: err}
	}
	return n, nil
}

var _ CapacityStore = (*PostgresStore)(nil)
var _ CapacityStore = (*MemoryStore)(nil)

// Connect opens and pings a Postgres handle using the pgx stdlib driver.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
