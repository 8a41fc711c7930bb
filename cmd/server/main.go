package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sc2371/afterschool-booking/internal/config"
	"github.com/sc2371/afterschool-booking/internal/handlers"
	"github.com/sc2371/afterschool-booking/internal/metrics"
	"github.com/sc2371/afterschool-booking/internal/middleware"
	"github.com/sc2371/afterschool-booking/internal/repository"
	"github.com/sc2371/afterschool-booking/internal/service"
	_ "github.com/sc2371/afterschool-booking/migrations"
	"github.com/sc2371/afterschool-booking/pkg/logger"
)

func main() {
	// Load .env if present, then configuration from environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting lesson booking api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
	)

	// Connect the capacity store. With no DATABASE_URL the server runs
	// entirely in memory with the seed catalog.
	store, cleanup, err := openStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	bookingMetrics := metrics.New(reg)

	// Initialize services
	reservationService := service.NewReservationService(store, bookingMetrics)
	catalogService := service.NewCatalogService(store)

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := catalogService.Warm(warmCtx); err != nil {
		// Lookups still work without the filter, just slower on misses.
		log.Warn("failed to warm lesson ID filter", "error", err)
	}
	warmCancel()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(log)
	orderHandler := handlers.NewOrderHandler(reservationService, log)
	lessonHandler := handlers.NewLessonHandler(catalogService, log)
	imageHandler := handlers.NewImageHandler(cfg.Images.Dir, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Register health check and metrics endpoints
	r.Get("/health", healthHandler.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Lesson images
	r.Get("/images/*", imageHandler.ServeImage)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Lesson catalog endpoints
		r.Get("/lessons", lessonHandler.ListLessons)
		r.Get("/lessons/{lessonId}", lessonHandler.GetLesson)
		r.Get("/search", lessonHandler.SearchLessons)

		// Administrative capacity update
		r.Put("/lessons/{lessonId}/space", lessonHandler.UpdateSpace)

		// Order endpoints
		r.Post("/orders", orderHandler.CreateOrder)
		r.Get("/orders/{orderId}", orderHandler.GetOrder)
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// openStore connects the configured capacity store and returns it with
// its teardown function.
func openStore(cfg *config.Config, log *slog.Logger) (repository.CapacityStore, func(), error) {
	if cfg.Database.URL == "" {
		log.Info("no DATABASE_URL set, using in-memory store with seed catalog")
		return repository.NewMemoryStore(repository.SeedLessons()...), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := repository.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database connected and migrated")

	store := repository.NewPostgresStore(db)
	if err := seedIfEmpty(ctx, store); err != nil {
		db.Close()
		return nil, nil, err
	}

	return store, func() { db.Close() }, nil
}

// seedIfEmpty loads the default catalog into a fresh database.
func seedIfEmpty(ctx context.Context, store *repository.PostgresStore) error {
	n, err := store.CountLessons(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, l := range repository.SeedLessons() {
		if err := store.InsertLesson(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
