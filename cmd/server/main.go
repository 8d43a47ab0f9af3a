package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rental/internal/app"
	"rental/internal/availability"
	"rental/internal/config"
	"rental/internal/handler"
	"rental/internal/messaging"
	"rental/internal/middleware"
	"rental/internal/pricing"
	internalRedis "rental/internal/redis"
	"rental/internal/repository"
	"rental/internal/repository/memory"
	"rental/internal/repository/postgres"
	"rental/internal/scheduler"
	"rental/internal/service"
	"rental/internal/storage"
)

// repositories groups the persistence backend chosen at startup.
type repositories struct {
	cars     repository.CarRepository
	bookings repository.BookingRepository
	drivers  repository.DriverRepository
	payments repository.PaymentRepository
}

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	// Initialize persistence.
	var repos repositories
	switch cfg.Storage.Driver {
	case "memory":
		repos = repositories{
			cars:     memory.NewCarRepository(),
			bookings: memory.NewBookingRepository(),
			drivers:  memory.NewDriverRepository(),
			payments: memory.NewPaymentRepository(),
		}
		logger.Info("using in-memory storage")
	default:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("connected to PostgreSQL")

		if cfg.Storage.MigrationsEnabled {
			if err := app.RunMigrations(db, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = postgresRepositories(db)
	}

	// Initialize Redis with New Relic instrumentation. Redis is optional.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.Warn("redis unavailable, continuing without distributed lock and cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info("connected to Redis")
		}
	}

	// Initialize the notification publisher. RabbitMQ is optional.
	var publisher service.EventPublisher
	if cfg.AMQP.URL != "" {
		p, err := messaging.Dial(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, notifications will only be logged", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	documents, err := storage.NewFileStore(cfg.Storage.DocumentDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize document storage", zap.Error(err))
	}

	// Wire dependencies.
	reservations, server := wireServer(repos, redisClient, publisher, documents, nrApp, cfg, logger)

	if err := reservations.WarmUp(ctx); err != nil {
		logger.Fatal("failed to load availability index", zap.Error(err))
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go scheduler.New(reservations, cfg.Reservation.SweepInterval, logger).Start(runCtx)

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		cars:     postgres.NewCarRepository(db),
		bookings: postgres.NewBookingRepository(db),
		drivers:  postgres.NewDriverRepository(db),
		payments: postgres.NewPaymentRepository(db),
	}
}

// wireServer wires all dependencies and returns the reservation service and HTTP server.
func wireServer(
	repos repositories,
	redisClient *redis.Client,
	publisher service.EventPublisher,
	documents service.DocumentUploadPort,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *zap.Logger,
) (*service.ReservationService, *http.Server) {
	// Redis-backed collaborators stay nil interfaces when Redis is disabled.
	var (
		lockStore        internalRedis.LockStoreInterface
		cacheStore       internalRedis.CacheStoreInterface
		idempotencyStore middleware.IdempotencyStore
	)
	if redisClient != nil {
		lockStore = internalRedis.NewLockStore(redisClient)
		cacheStore = internalRedis.NewCacheStore(redisClient)
		idempotencyStore = middleware.NewRedisIdempotencyStore(redisClient)
	}

	// Initialize services.
	notificationService := service.NewNotificationService(publisher, logger)
	ledger := service.NewVerificationLedger(repos.drivers, time.Now, logger)
	calculator := pricing.NewCalculator(pricing.Config{
		TaxRateBps:      cfg.Pricing.TaxRateBps,
		ServiceFeeCents: cfg.Pricing.ServiceFeeCents,
	})
	reservations := service.NewReservationService(service.ReservationDeps{
		CarRepo:     repos.cars,
		BookingRepo: repos.bookings,
		Index:       availability.NewIndex(),
		Calculator:  calculator,
		Ledger:      ledger,
		LockStore:   lockStore,
		CacheStore:  cacheStore,
		Notifier:    notificationService,
		Config: service.ReservationConfig{
			MaxRangeDays:      cfg.Reservation.MaxRangeDays,
			PaymentSessionTTL: cfg.Reservation.PaymentSessionTTL,
			LockWait:          cfg.Reservation.LockWait,
			LockTTL:           cfg.Reservation.LockTTL,
		},
		Now:    time.Now,
		Logger: logger,
	})
	paymentService := service.NewPaymentService(
		repos.payments,
		reservations,
		service.NewMockCheckoutProvider(),
		cfg.Pricing.Currency,
		time.Now,
		logger,
	)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		CarHandler:       handler.NewCarHandler(reservations),
		BookingHandler:   handler.NewBookingHandler(reservations, paymentService),
		DriverHandler:    handler.NewDriverHandler(reservations, ledger),
		DocumentHandler:  handler.NewDocumentHandler(ledger, documents),
		PaymentHandler:   handler.NewPaymentHandler(paymentService),
		IdempotencyStore: idempotencyStore,
		JWTSecret:        cfg.Auth.JWTSecret,
		NewRelicApp:      nrApp,
		Logger:           logger,
	})

	// Create HTTP server.
	return reservations, &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
