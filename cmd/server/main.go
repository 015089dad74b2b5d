package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	bulkimport "github.com/fulfillment/backend/internal/application/import"
	inventoryapp "github.com/fulfillment/backend/internal/application/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/fulfillment/backend/internal/infrastructure/cache"
	"github.com/fulfillment/backend/internal/infrastructure/config"
	"github.com/fulfillment/backend/internal/infrastructure/event"
	"github.com/fulfillment/backend/internal/infrastructure/logger"
	"github.com/fulfillment/backend/internal/infrastructure/notification"
	"github.com/fulfillment/backend/internal/infrastructure/persistence"
	"github.com/fulfillment/backend/internal/infrastructure/scheduler"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Services wired here are the embedding surface for callers; transport
// adapters live outside this module and receive them by injection.
type engine struct {
	Validation  *inventoryapp.ValidationService
	Reservation *inventoryapp.ReservationService
	Expiry      *inventoryapp.ReservationExpiryService
	Movement    *inventoryapp.MovementService
	CycleCount  *inventoryapp.CycleCountService
	AuditQuery  *inventoryapp.AuditQueryService
	Import      *bulkimport.ImportService
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting inventory engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Connect to database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
	)

	// Repositories
	inventoryRepo := persistence.NewGormInventoryItemRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	cycleCountRepo := persistence.NewGormCycleCountRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, cfg.Transaction.Timeout)

	// Event bus for post-commit domain events
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Import session registry and event idempotency store: Redis when
	// configured, in-process otherwise
	var sessionRegistry bulkimport.SessionRegistry
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Host != "" {
		redisCfg := cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		redisRegistry, err := cache.NewRedisSessionRegistry(redisCfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisRegistry.Close()
		}()
		redisStore, err := cache.NewRedisIdempotencyStore(redisCfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisStore.Close()
		}()
		sessionRegistry = redisRegistry
		idempotencyStore = redisStore
		log.Info("Using Redis registries",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		inMemRegistry := cache.NewInMemorySessionRegistry()
		defer func() {
			_ = inMemRegistry.Close()
		}()
		inMemStore := cache.NewInMemoryIdempotencyStore()
		defer func() {
			_ = inMemStore.Close()
		}()
		sessionRegistry = inMemRegistry
		idempotencyStore = inMemStore
		log.Info("Using in-memory registries")
	}

	// Default wildcard event sink, deduplicated across redeliveries
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewLoggingEventHandler(log),
		idempotencyStore,
		log,
	))

	// Application services
	validationService := inventoryapp.NewValidationService(productRepo, warehouseRepo)

	reservationService := inventoryapp.NewReservationService(scope, reservationRepo, validationService, log)
	reservationService.SetEventPublisher(eventBus)
	reservationService.SetNotifier(notification.NewLogNotifier(log))

	expiryService := inventoryapp.NewReservationExpiryService(scope, reservationRepo, log)
	expiryService.SetEventPublisher(eventBus)

	movementService := inventoryapp.NewMovementService(scope, movementRepo, inventoryRepo, validationService, log)
	movementService.SetEventPublisher(eventBus)

	cycleCountService := inventoryapp.NewCycleCountService(scope, cycleCountRepo, inventoryRepo, validationService, log, inventoryapp.CycleCountConfig{
		AutoApproveThreshold: decimal.NewFromFloat(cfg.CycleCount.AutoApproveThreshold),
		WarningThreshold:     decimal.NewFromFloat(cfg.CycleCount.WarningThreshold),
		ErrorThreshold:       decimal.NewFromFloat(cfg.CycleCount.ErrorThreshold),
	})
	cycleCountService.SetEventPublisher(eventBus)

	importService := bulkimport.NewImportService(scope, inventoryRepo, validationService, log, bulkimport.Config{
		MaxRows:          cfg.Import.MaxRows,
		MaxFileSizeBytes: cfg.Import.MaxFileSizeBytes,
		MaxErrors:        cfg.Import.MaxErrors,
		SessionTTL:       cfg.Import.SessionTTL,
	})
	importService.SetSessionRegistry(sessionRegistry)
	importService.SetEventPublisher(eventBus)

	app := &engine{
		Validation:  validationService,
		Reservation: reservationService,
		Expiry:      expiryService,
		Movement:    movementService,
		CycleCount:  cycleCountService,
		AuditQuery:  inventoryapp.NewAuditQueryService(auditRepo),
		Import:      importService,
	}

	// Background reservation expiry sweep
	sweeper := scheduler.NewExpirySweeper(app.Expiry, reservationRepo, log, scheduler.ExpirySweeperConfig{
		Enabled:       true,
		Interval:      cfg.Reservation.SweepInterval,
		ExpiryMinutes: cfg.Reservation.ExpiryMinutes,
		MaxToRelease:  cfg.Reservation.MaxBatchRelease,
		SweepTimeout:  2 * time.Minute,
	})
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start expiry sweeper", zap.Error(err))
	}

	log.Info("Inventory engine started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eventBus.Stop(ctx); err != nil {
		log.Warn("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("Inventory engine exited gracefully")
}
