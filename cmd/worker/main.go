// Package main is the entry point for the stocktrail background worker.
// It runs the token expiry sweeps and drains the notification outbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stocktrail/internal/domain/bulk"
	"stocktrail/internal/domain/events"
	"stocktrail/internal/domain/ledger"
	"stocktrail/internal/domain/location"
	"stocktrail/internal/domain/movement"
	"stocktrail/internal/infrastructure/cache"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stocktrail worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	locationRepo := postgres.NewLocationRepo(txManager)
	productRepo := postgres.NewProductRepo(txManager)
	movementRepo := postgres.NewMovementRepo(txManager)
	bulkRepo := postgres.NewBulkRepo(txManager)
	publisher := postgres.NewOutboxPublisher(txManager)

	var invalidator events.Invalidator = cache.Noop{}
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		redisInvalidator, err := cache.NewRedisInvalidator(cache.Config{
			Addr:     addr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisInvalidator.Close()
		invalidator = redisInvalidator
	}

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

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	relay := postgres.NewOutboxRelay(pool, getEnvInt("OUTBOX_BATCH_SIZE", 100), &deliveryHandler{log: log, audit: audit})

	sweepInterval := getEnvDuration("SWEEP_INTERVAL", time.Minute)
	relayInterval := getEnvDuration("OUTBOX_INTERVAL", 5*time.Second)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, log, sweepInterval, movementService, bulkService)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runRelay(ctx, log, relayInterval, relay)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()
	log.Info("worker stopped")
}

// runSweeper periodically flips movements whose tokens lapsed.
func runSweeper(ctx context.Context, log *logger.Logger, interval time.Duration, movements *movement.Service, bulks *bulk.Service) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := movements.ExpireStale(ctx); err != nil {
				log.Warnw("movement expiry sweep failed", "error", err)
			} else if n > 0 {
				log.Infow("movement expiry sweep", "expired", n)
			}

			if n, err := bulks.ExpireStale(ctx, 100); err != nil {
				log.Warnw("bulk expiry sweep failed", "error", err)
			} else if n > 0 {
				log.Infow("bulk expiry sweep", "expired", n)
			}
		}
	}
}

// runRelay periodically drains the outbox.
func runRelay(ctx context.Context, log *logger.Logger, interval time.Duration, relay *postgres.OutboxRelay) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := relay.ProcessBatch(ctx); err != nil {
				log.Warnw("outbox batch failed", "error", err)
			}
		}
	}
}

// deliveryHandler is the default outbox consumer: it emits delivered
// events to the log stream, where the notification gateway tails them,
// and journals each stock-affecting event into the audit table. Swapped
// for a broker producer when one is deployed.
type deliveryHandler struct {
	log   *logger.Logger
	audit *postgres.AuditService
}

func (h *deliveryHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	h.log.WithContext(ctx).Infow("event delivered",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return h.audit.Log(ctx, postgres.AuditEntry{
		EntityType: msg.AggregateType,
		EntityID:   msg.AggregateID,
		Action:     auditAction(msg.EventType),
		Changes:    msg.Payload,
	})
}

// auditAction maps an event type to its journal action.
func auditAction(eventType string) postgres.AuditAction {
	switch eventType {
	case events.TypeProductMoved, events.TypeStockChanged:
		return postgres.AuditActionMove
	case events.TypeBulkReceived:
		return postgres.AuditActionConfirm
	default:
		return postgres.AuditActionUpdate
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
