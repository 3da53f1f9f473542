package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/threatdash/backend/docs"
	"github.com/threatdash/backend/internal/auth"
	"github.com/threatdash/backend/internal/config"
	"github.com/threatdash/backend/internal/corpus"
	"github.com/threatdash/backend/internal/handlers"
	"github.com/threatdash/backend/internal/logger"
	"github.com/threatdash/backend/internal/middleware"
	"github.com/threatdash/backend/internal/repositories"
	"github.com/threatdash/backend/internal/retrieval"
	"github.com/threatdash/backend/internal/services"
)

// @title Threat Intel Dashboard API
// @version 1.0
// @description Authenticated REST API for a threat intelligence dashboard: retrieval-augmented search, CVE feeds, country heuristics and corpus stats.

// @contact.name API Support

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Threat Intel Dashboard API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize JWT token generator
	tokenGenerator := auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.TTL)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)

	// Load corpus metadata; stats endpoints degrade gracefully when the file
	// is missing, so this is a warning rather than a startup failure
	meta := corpus.NewMetaCache(cfg.Retrieval.MetaPath)
	if err := meta.Load(); err != nil {
		logger.Logger.Warn("corpus metadata unavailable at startup",
			zap.String("path", cfg.Retrieval.MetaPath), zap.Error(err))
	} else {
		logger.Logger.Info("corpus metadata loaded", zap.Int("items", meta.Len()))
	}

	// Initialize the vector index retriever
	retriever := retrieval.NewIndexProcess(
		cfg.Retrieval.PythonBin,
		cfg.Retrieval.MetaPath,
		cfg.Retrieval.IndexPath,
		logger.Logger,
	)

	// The external summarizer is optional; services receive nil when it is off
	var summarizer services.Summarizer
	if cfg.SummarizerEnabled() {
		summarizer = services.NewOpenAISummarizer(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger.Logger)
		logger.Logger.Info("external summarizer enabled", zap.String("model", cfg.OpenAI.Model))
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, tokenGenerator, logger.Logger)
	mfaService := services.NewMfaService(userRepo, logger.Logger)
	askService := services.NewAskService(retriever, summarizer, logger.Logger)
	searchService := services.NewSearchService(retriever, summarizer, logger.Logger)
	cveService := services.NewCveService(nil, cfg.Feeds.NVDBaseURL, cfg.Feeds.CirclBaseURL, logger.Logger)
	mapService := services.NewMapService(cveService, logger.Logger)
	statsService := services.NewStatsService(meta, logger.Logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, logger.Logger)
	mfaHandler := handlers.NewMfaHandler(mfaService, logger.Logger)
	askHandler := handlers.NewAskHandler(askService, logger.Logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger.Logger)
	cveHandler := handlers.NewCveHandler(cveService, logger.Logger)
	mapHandler := handlers.NewMapHandler(mapService, logger.Logger)
	statsHandler := handlers.NewStatsHandler(statsService, logger.Logger)
	adminHandler := handlers.NewAdminHandler(meta, logger.Logger)
	systemHandler := handlers.NewSystemHandler(logger.Logger)

	// Initialize auth middleware
	authMiddleware := middleware.Auth(tokenGenerator)
	adminMiddleware := middleware.RequireRole("admin")

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger.Logger))
	r.Use(middleware.Recovery(logger.Logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics)
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	r.Use(middleware.RequestSizeLimit(1 * 1024 * 1024)) // 1MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Operational endpoints outside the API prefix
	r.Get("/health", systemHandler.Health)
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	// Scope router to /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		authHandler.RegisterRoutes(r)
		cveHandler.RegisterRoutes(r)
		systemHandler.RegisterRoutes(r)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			mfaHandler.RegisterRoutes(r)
			mapHandler.RegisterRoutes(r)
			askHandler.RegisterRoutes(r)
			searchHandler.RegisterRoutes(r)
			statsHandler.RegisterRoutes(r)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			adminHandler.RegisterRoutes(r)
		})
	})

	// JSON catch-all for unknown routes
	r.NotFound(systemHandler.NotFound)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // ask/search wait on the index subprocess
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "dashboard_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
