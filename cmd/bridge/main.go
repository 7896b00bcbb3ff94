package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/adapter/http/fiber/handlers"
	"github.com/evroam/oicp-bridge/internal/adapter/http/fiber/middleware"
	"github.com/evroam/oicp-bridge/internal/adapter/hub"
	"github.com/evroam/oicp-bridge/internal/adapter/queue"
	"github.com/evroam/oicp-bridge/internal/adapter/storage/postgres"
	"github.com/evroam/oicp-bridge/internal/adapter/store"
	"github.com/evroam/oicp-bridge/internal/adapter/vault"
	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/graph"
	"github.com/evroam/oicp-bridge/internal/observability/telemetry"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/authorize"
	"github.com/evroam/oicp-bridge/internal/service/events"
	"github.com/evroam/oicp-bridge/internal/service/mediator"
	"github.com/evroam/oicp-bridge/internal/service/roaming"
	syncsvc "github.com/evroam/oicp-bridge/internal/service/sync"
	"github.com/evroam/oicp-bridge/pkg/config"
)

const (
	serviceName    = "oicp-bridge"
	serviceVersion = "v1.0.0"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting OICP bridge",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// 3. Resolve secrets from Vault when configured
	if cfg.Vault.Enabled {
		secrets, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			logger.Fatal("Failed to connect to Vault", zap.Error(err))
		}
		if key, err := secrets.GetHubAPIKey(); err == nil {
			cfg.Hub.APIKey = key
		} else {
			logger.Warn("Hub API key not found in Vault", zap.Error(err))
		}
		if url, err := secrets.GetDatabaseCredentials(); err == nil {
			cfg.Database.URL = url
		}
	}

	// 4. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(serviceName, serviceVersion, cfg.OpenTelemetry.Jaeger.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 5. Initialize PostgreSQL (CDR archive); optional
	var archive ports.CDRArchive
	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer postgres.Close(db)

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}
		archive = postgres.NewCDRRepository(db, logger)
	} else {
		logger.Warn("No database configured, charge detail records will not be archived")
	}

	// 6. Initialize session/reservation stores (Redis, in-memory fallback)
	var sessions ports.SessionStore
	var reservations ports.ReservationStore
	if cfg.Redis.URL != "" {
		redisClient, err := store.NewRedisClient(cfg.Redis.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		sessions = store.NewRedisSessionStore(redisClient, logger)
		reservations = store.NewRedisReservationStore(redisClient, logger)
	} else {
		logger.Warn("No Redis configured, using in-process session state")
		sessions = store.NewMemorySessionStore()
		reservations = store.NewMemoryReservationStore()
	}

	// 7. Initialize Message Queue (NATS); optional
	var messageQueue queue.MessageQueue
	if cfg.NATS.URL != "" {
		messageQueue, err = queue.NewNATSQueue(cfg.NATS.URL, cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer messageQueue.Close()
	}

	// 8. Event bus and entity graph
	bus := events.NewBus(logger)
	entityGraph := graph.NewStore(logger)

	// 9. Hub client (outbound transport)
	providerID, err := domain.ParseProviderID(cfg.Hub.ProviderID)
	if err != nil {
		logger.Fatal("Invalid provider id", zap.String("provider_id", cfg.Hub.ProviderID), zap.Error(err))
	}
	hubClient := hub.NewClient(hub.ClientConfig{
		BaseURL:        cfg.Hub.BaseURL,
		ProviderID:     providerID,
		APIKey:         cfg.Hub.APIKey,
		DefaultTimeout: cfg.Hub.Timeout,
		Breaker: hub.BreakerSettings{
			Disabled:            !cfg.CircuitBreaker.Enabled,
			Interval:            cfg.CircuitBreaker.Interval,
			Timeout:             cfg.CircuitBreaker.Timeout,
			ConsecutiveFailures: cfg.CircuitBreaker.ConsecutiveFailures,
		},
	}, bus, logger)

	// 10. Status change audit log
	var sink syncsvc.ChangeSink
	if cfg.Audit.Enabled {
		auditLog, err := syncsvc.NewAuditLog(cfg.Audit.Directory, logger)
		if err != nil {
			logger.Fatal("Failed to open audit log", zap.Error(err))
		}
		sink = auditLog
	}

	// 11. Reconciliation engine and sync scheduler
	reconciler := syncsvc.NewReconciler(entityGraph, operatorFilter(cfg.Sync), sink, messageQueue, logger)
	scheduler := syncsvc.NewScheduler(hubClient, reconciler, bus, syncsvc.Options{
		DataInterval:   cfg.Sync.DataInterval,
		StatusInterval: cfg.Sync.StatusInterval,
		InitialDelay:   cfg.Sync.InitialDelay,
		SearchCenter:   searchCenter(cfg.Sync),
		RadiusKM:       float64(cfg.Sync.SearchRadiusKm),
	}, logger)

	// 12. Services (Business Logic Layer)
	authorizer := authorize.NewService(entityGraph, sessions, providerID, cfg.Authorization.AllowedUIDs, logger)
	med := mediator.NewMediator(authorizer, archive, bus, logger)
	roamingService := roaming.NewService(hubClient, sessions, reservations, logger)

	// 13. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	// Health Check Endpoints
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		return c.SendString("Ready")
	})

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.Context())
			return nil
		})
	}

	// Inbound OICP routes (hub-facing)
	hubServer := hub.NewServer(med, logger)
	hubServer.Register(app)

	// Operator command routes
	commandHandler := handlers.NewCommandHandler(roamingService, entityGraph, bus, logger)
	v1 := app.Group("/api/bridge/v1")
	v1.Post("/reservations", commandHandler.Reserve)
	v1.Delete("/reservations/:id", commandHandler.CancelReservation)
	v1.Post("/sessions/start", commandHandler.RemoteStart)
	v1.Post("/sessions/:id/stop", commandHandler.RemoteStop)
	v1.Get("/cdrs", commandHandler.GetChargeDetailRecords)
	v1.Post("/auth-data/push", commandHandler.PushAuthenticationData)
	v1.Get("/operators", commandHandler.ListOperators)
	v1.Get("/stats", commandHandler.Stats)

	// 14. Start Background Workers
	if messageQueue != nil {
		go startBackgroundWorkers(messageQueue, logger)
	}

	// 15. Start sync scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Sync.Enabled {
		scheduler.Start(ctx)
	}

	// 16. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 17. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down bridge...")

	if cfg.Sync.Enabled {
		scheduler.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Bridge exited gracefully")
}

// operatorFilter builds the admission predicate from the configured include
// and exclude lists. An include list, when present, wins over excludes.
func operatorFilter(cfg config.SyncConfig) syncsvc.OperatorFilter {
	if len(cfg.IncludedOperators) == 0 && len(cfg.ExcludedOperators) == 0 {
		return nil
	}
	included := make(map[string]struct{}, len(cfg.IncludedOperators))
	for _, id := range cfg.IncludedOperators {
		included[id] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludedOperators))
	for _, id := range cfg.ExcludedOperators {
		excluded[id] = struct{}{}
	}
	return func(name string, id domain.OperatorID) bool {
		if len(included) > 0 {
			_, ok := included[string(id)]
			return ok
		}
		_, ok := excluded[string(id)]
		return !ok
	}
}

func searchCenter(cfg config.SyncConfig) *domain.GeoCoordinate {
	if cfg.SearchRadiusKm <= 0 {
		return nil
	}
	return &domain.GeoCoordinate{Latitude: cfg.SearchCenterLat, Longitude: cfg.SearchCenterLon}
}

// startBackgroundWorkers subscribes to the status change feed so operations
// can follow transitions from the bridge's own logs.
func startBackgroundWorkers(mq queue.MessageQueue, logger *zap.Logger) {
	logger.Info("Starting background workers")

	mq.Subscribe(syncsvc.StatusChangeSubject, func(msg []byte) error {
		logger.Info("EVSE status changed", zap.ByteString("msg", msg))
		return nil
	})
}
