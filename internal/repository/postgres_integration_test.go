package repository

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sc2371/afterschool-booking/internal/models"
	_ "github.com/sc2371/afterschool-booking/migrations"
)

type PostgresStoreIntegrationTestSuite struct {
	suite.Suite
	db    *sqlx.DB
	store *PostgresStore
	pgc   *postgres.PostgresContainer
	ctx   context.Context
}

func (s *PostgresStoreIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgc, err := postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	s.pgc = pgc

	connStr, err := pgc.ConnectionString(s.ctx, "sslmode=disable")
	assert.NoError(s.T(), err)

	db, err := sqlx.Connect("pgx", connStr)
	assert.NoError(s.T(), err)
	s.db = db

	assert.NoError(s.T(), goose.SetDialect("postgres"))
	assert.NoError(s.T(), goose.Up(db.DB, "../../migrations"))

	s.store = NewPostgresStore(s.db)
}

func (s *PostgresStoreIntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.pgc != nil {
		_ = s.pgc.Terminate(s.ctx)
	}
}

func (s *PostgresStoreIntegrationTestSuite) seedLesson(subject string, space int) models.Lesson {
	l := models.Lesson{
		ID:       uuid.NewString(),
		Subject:  subject,
		Location: "London",
		Price:    100,
		Space:    space,
		Image:    "/images/test.webp",
	}
	assert.NoError(s.T(), s.store.InsertLesson(s.ctx, l))
	return l
}

func (s *PostgresStoreIntegrationTestSuite) TestCommitReservationDecrementsAndRecordsOrder() {
	math := s.seedLesson("Math", 5)
	music := s.seedLesson("Music", 4)

	order := &models.Order{
		ID:          uuid.NewString(),
		Name:        "Jane Doe",
		PhoneNumber: "5551234567",
		Items: []models.OrderItem{
			{LessonID: math.ID, Quantity: 2},
			{LessonID: music.ID, Quantity: 2},
		},
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.CommitReservation(s.ctx, []Decrement{
		{LessonID: math.ID, Quantity: 2},
		{LessonID: music.ID, Quantity: 2},
	}, order)
	assert.NoError(s.T(), err)

	lessons, err := s.store.GetLessons(s.ctx, []string{math.ID, music.ID})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 3, lessons[math.ID].Space)
	assert.Equal(s.T(), 2, lessons[music.ID].Space)

	fetched, err := s.store.GetOrder(s.ctx, order.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "Jane Doe", fetched.Name)
	assert.Len(s.T(), fetched.Items, 2)
}

func (s *PostgresStoreIntegrationTestSuite) TestCommitReservationConflictAppliesNothing() {
	math := s.seedLesson("Math", 5)
	music := s.seedLesson("Music", 1)

	order := &models.Order{ID: uuid.NewString(), Name: "Jane Doe", PhoneNumber: "5551234567", CreatedAt: time.Now().UTC()}
	err := s.store.CommitReservation(s.ctx, []Decrement{
		{LessonID: math.ID, Quantity: 2},
		{LessonID: music.ID, Quantity: 2},
	}, order)

	var conflict *ConflictError
	assert.ErrorAs(s.T(), err, &conflict)
	assert.Equal(s.T(), music.ID, conflict.LessonID)

	lessons, err := s.store.GetLessons(s.ctx, []string{math.ID, music.ID})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 5, lessons[math.ID].Space)
	assert.Equal(s.T(), 1, lessons[music.ID].Space)

	_, err = s.store.GetOrder(s.ctx, order.ID)
	assert.ErrorIs(s.T(), err, ErrOrderNotFound)
}

func (s *PostgresStoreIntegrationTestSuite) TestConcurrentCommitsNeverOverdraw() {
	const (
		capacity = 10
		quantity = 3
		commits  = 8
	)
	math := s.seedLesson("Math", capacity)

	var wg sync.WaitGroup
	errs := make([]error, commits)
	for i := 0; i < commits; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := &models.Order{
				ID:          uuid.NewString(),
				Name:        "Jane Doe",
				PhoneNumber: "5551234567",
				Items:       []models.OrderItem{{LessonID: math.ID, Quantity: quantity}},
				CreatedAt:   time.Now().UTC(),
			}
			errs[i] = s.store.CommitReservation(s.ctx, []Decrement{{LessonID: math.ID, Quantity: quantity}}, order)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var conflict *ConflictError
		assert.ErrorAs(s.T(), err, &conflict)
	}
	assert.Equal(s.T(), capacity/quantity, successes)

	lessons, err := s.store.GetLessons(s.ctx, []string{math.ID})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), capacity-successes*quantity, lessons[math.ID].Space)
}

func (s *PostgresStoreIntegrationTestSuite) TestAdjustCapacityFloor() {
	math := s.seedLesson("Math", 2)

	lesson, err := s.store.AdjustCapacity(s.ctx, math.ID, -2)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, lesson.Space)

	_, err = s.store.AdjustCapacity(s.ctx, math.ID, -1)
	var conflict *ConflictError
	assert.True(s.T(), errors.As(err, &conflict))
}

func (s *PostgresStoreIntegrationTestSuite) TestSearchLessons() {
	s.seedLesson("Drama", 7)

	matches, err := s.store.SearchLessons(s.ctx, "dra")
	assert.NoError(s.T(), err)
	assert.NotEmpty(s.T(), matches)
	for _, l := range matches {
		assert.Equal(s.T(), "Drama", l.Subject)
	}
}

func TestPostgresStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreIntegrationTestSuite))
}
