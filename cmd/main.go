package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/handlers"
	"marketplace/internal/jobs"
	"marketplace/internal/logging"
	"marketplace/internal/observability"
	"marketplace/internal/repository"
	"marketplace/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	repo := repository.NewRepository(db)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize services
	categories := services.NewCategoryService(repo)
	if n, err := categories.SeedDefaults(context.Background()); err != nil {
		logger.Fatal("failed to seed categories", zap.Error(err))
	} else if n > 0 {
		logger.Info("seeded categories", zap.Int64("inserted", n))
	}

	router := handlers.NewRouter(handlers.Deps{
		Accounts:       services.NewAccountService(repo, tokens, cfg.Auth.BcryptCost, logger),
		Categories:     categories,
		Listings:       services.NewListingService(repo, logger, metrics, cfg.Marketplace.DefaultCurrency),
		Trades:         services.NewTradeService(repo, logger, metrics),
		Conversations:  services.NewConversationService(repo, logger),
		Reviews:        services.NewReviewService(repo, logger),
		Favorites:      services.NewFavoriteService(repo),
		Disputes:       services.NewDisputeService(repo, logger),
		Tokens:         tokens,
		Metrics:        metrics,
		Gatherer:       prometheus.DefaultGatherer,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            logger,
	})

	// Start counter reconciliation job
	if cfg.Marketplace.ReconcileInterval > 0 {
		reconcileJob := jobs.NewReconcileJob(
			services.NewReconcileService(repo, logger, metrics),
			cfg.Marketplace.ReconcileInterval,
			logger,
		)
		reconcileJob.Start(context.Background())
		defer reconcileJob.Stop()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("db_driver", cfg.Database.Driver))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
