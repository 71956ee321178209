package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/events"
	"dispatch/internal/feed"
	"dispatch/internal/handler"
	"dispatch/internal/livesync"
	"dispatch/internal/logging"
	"dispatch/internal/match"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := logging.NewLogger(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Optional order-event stream.
	var publisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		logger.Info("Kafka publisher enabled", "topic", cfg.Kafka.Topic)
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, publisher, nrApp, cfg, logger)

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	publisher *events.KafkaPublisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *slog.Logger,
) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Change feed over Redis pub/sub.
	changes := feed.NewRedisFeed(redisClient)

	// Initialize repositories.
	orderRepo := postgres.NewOrderRepository(db)
	riderRepo := postgres.NewRiderRepository(db)
	locationRepo := postgres.NewRiderLocationRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService(logger)

	// EventPublisher is an interface; a nil *KafkaPublisher inside a non-nil
	// interface would dodge the service's nil checks, so convert explicitly.
	var eventPublisher service.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}

	orderService := service.NewOrderService(orderRepo, lockStore, changes, eventPublisher, notificationService, logger)
	riderService := service.NewRiderService(riderRepo, locationRepo, locationStore, cacheStore, changes, logger)
	matcher := match.NewMatcher(cfg.Geo.MatchSpeedKmh)
	matchService := service.NewMatchService(riderRepo, locationStore, matcher, cfg.Geo.SearchRadiusKm, logger)

	// Live subscriptions for tracking screens.
	live := livesync.New(changes, logger, notificationService)

	// Initialize handlers.
	orderHandler := handler.NewOrderHandler(orderService)
	riderHandler := handler.NewRiderHandler(riderService, matchService, riderRepo)
	trackingHandler := handler.NewTrackingHandler(orderService, riderService, live, cfg.Geo.TrackingSpeedKmh, logger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:    orderHandler,
		RiderHandler:    riderHandler,
		TrackingHandler: trackingHandler,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
