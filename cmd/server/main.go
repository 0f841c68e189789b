// Package main is the entry point for the stocktrail API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stocktrail/internal/domain/auth"
	"stocktrail/internal/domain/bulk"
	"stocktrail/internal/domain/events"
	"stocktrail/internal/domain/kanban"
	"stocktrail/internal/domain/ledger"
	"stocktrail/internal/domain/location"
	"stocktrail/internal/domain/movement"
	"stocktrail/internal/infrastructure/cache"
	v1 "stocktrail/internal/infrastructure/http/v1"
	"stocktrail/internal/infrastructure/storage/postgres"
	"stocktrail/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stocktrail server")

	dsn := mustEnv("DATABASE_URL")
	if err := postgres.Migrate(dsn); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}
	log.Info("database schema up to date")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// Repositories
	locationRepo := postgres.NewLocationRepo(txManager)
	productRepo := postgres.NewProductRepo(txManager)
	movementRepo := postgres.NewMovementRepo(txManager)
	bulkRepo := postgres.NewBulkRepo(txManager)
	kanbanRepo := postgres.NewKanbanRepo(txManager)
	publisher := postgres.NewOutboxPublisher(txManager)

	// Cache invalidation is optional: without Redis it degrades to a noop.
	var invalidator events.Invalidator = cache.Noop{}
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		redisInvalidator, err := cache.NewRedisInvalidator(cache.Config{
			Addr:     addr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisInvalidator.Close()
		invalidator = redisInvalidator
		log.Infow("redis connected", "addr", addr)
	}

	// Domain services
	resolver := location.NewResolver(locationRepo)
	ledgerService := ledger.NewService(productRepo)
	movementService := movement.NewService(
		movementRepo, productRepo, locationRepo, resolver,
		ledgerService, txManager, publisher, invalidator,
	)
	bulkService := bulk.NewService(
		bulkRepo, movementRepo, productRepo, locationRepo, resolver,
		ledgerService, txManager, publisher, invalidator,
	)
	kanbanService := kanban.NewService(kanbanRepo, productRepo, txManager, publisher, invalidator)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret: mustEnv("JWT_SECRET"),
		Issuer: getEnv("JWT_ISSUER", "stocktrail"),
	})

	router := v1.NewRouter(v1.RouterConfig{
		Pool:         pool,
		Logger:       log,
		JWTValidator: jwtService,
		Movements:    movementService,
		Bulks:        bulkService,
		Kanbans:      kanbanService,
		Locations:    locationRepo,
		Resolver:     resolver,
	})

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
