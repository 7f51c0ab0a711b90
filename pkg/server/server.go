package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/core/internal/config"
	"github.com/fieldops/core/pkg/database"
	"github.com/fieldops/core/pkg/database/pool"
	"github.com/fieldops/core/pkg/handlers/contracts"
	"github.com/fieldops/core/pkg/handlers/health"
	"github.com/fieldops/core/pkg/handlers/schedules"
	"github.com/fieldops/core/pkg/logger"
	"github.com/fieldops/core/pkg/middleware"
	"github.com/fieldops/core/pkg/services"
)

// Server represents the API server
type Server struct {
	router   *http.ServeMux
	port     string
	logger   *logger.Logger
	dbPool   *pgxpool.Pool
	queries  *database.Queries
	handlers struct {
		health    *health.Handler
		schedules *schedules.Handler
		contracts *contracts.Handler
	}
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize database connection pool
	dbPool, err := pool.New(context.Background(), cfg.DatabaseURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection with retry logic
	if err := testDatabaseConnection(dbPool, log); err != nil {
		dbPool.Close()
		return nil, err
	}

	queries := database.New(dbPool)
	if err := queries.RunMigrations(context.Background()); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	calendarClient := services.NewCalendarClient(cfg)
	collections := services.NewCollectionService(queries, calendarClient, log)
	preview := services.NewPreviewService(collections, log, cfg.Engine.DefaultHorizonDays)
	materializer := services.NewMaterializerService(queries, collections, log, cfg.Engine.MaxInstances)

	// Create server instance
	server := &Server{
		router:  http.NewServeMux(),
		port:    port,
		logger:  log,
		dbPool:  dbPool,
		queries: queries,
	}

	// Initialize handlers
	server.handlers.health = health.NewHandler(log)
	server.handlers.schedules = schedules.NewHandler(queries, preview, materializer, log)
	server.handlers.contracts = contracts.NewHandler(queries, log)

	// Setup routes
	server.setupRoutes()

	log.Info().
		Str("action", "db_connected").
		Msg("Database connection pool established")

	return server, nil
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", middleware.CORS(s.handlers.health.HealthCheck))

	// Simple root endpoint
	s.router.HandleFunc("/", middleware.CORS(func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintf(w, "Field Operations API Service - OK (Database Connected)"); err != nil {
			http.Error(w, "Failed to write response", http.StatusInternalServerError)
		}
	}))

	// Onboarding endpoints
	s.router.HandleFunc("/api/properties", middleware.CORS(s.handlers.contracts.CreateProperty))
	s.router.HandleFunc("/api/categories", middleware.CORS(s.handlers.contracts.UpsertCategory))
	s.router.HandleFunc("/api/contracts", middleware.CORS(s.handlers.contracts.CreateContract))

	// Scheduling endpoints
	s.router.HandleFunc("/api/schedule/preview", middleware.CORS(s.handlers.schedules.Preview))
	s.router.HandleFunc("/api/contracts/materialize", middleware.CORS(s.handlers.schedules.Materialize))
	s.router.HandleFunc("/api/jobs/", middleware.CORS(s.handlers.schedules.Instances)) // handles /api/jobs/{id}/instances
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().
		Str("action", "server_start").
		Str("port", s.port).
		Msg("Starting API server with database connection")

	if err := http.ListenAndServe(":"+s.port, s.router); err != nil {
		return fmt.Errorf("server failed to start on port %s: %w", s.port, err)
	}

	return nil
}

// Close gracefully shuts down the server and closes database connections
func (s *Server) Close() {
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info().Msg("Database connection pool closed")
	}
}

// testDatabaseConnection tests the database connection with retry logic
func testDatabaseConnection(dbPool *pgxpool.Pool, log *logger.Logger) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := dbPool.Ping(ctx)
		cancel()

		if err == nil {
			return nil
		}

		if i == maxRetries-1 {
			return fmt.Errorf("failed to ping database after %d retries: %w", maxRetries, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", i+1).
			Str("action", "db_ping_retry").
			Msg("Retrying database connection")
		time.Sleep(2 * time.Second)
	}

	return nil
}
