package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ctpipe/uploadq/internal/api/handler"
	"github.com/ctpipe/uploadq/internal/api/router"
	"github.com/ctpipe/uploadq/internal/config"
	"github.com/ctpipe/uploadq/internal/notify"
	"github.com/ctpipe/uploadq/internal/platform"
	"github.com/ctpipe/uploadq/internal/publisher"
	"github.com/ctpipe/uploadq/internal/queue"
	"github.com/ctpipe/uploadq/internal/queue/postgres"
	"github.com/ctpipe/uploadq/internal/worker"
	"github.com/ctpipe/uploadq/shared/logger"
	"github.com/ctpipe/uploadq/shared/postgresql"
	"github.com/ctpipe/uploadq/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	// Initialize the job store
	store, dbClient, err := initStore(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}
	if dbClient != nil {
		defer dbClient.Close()
	}

	// Initialize the optional push channel
	broadcaster := notify.NewBroadcaster(16, appLogger.Logger)
	notifier := notify.Notifier(broadcaster)

	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		notifier = notify.Fanout(
			broadcaster,
			notify.NewAMQPNotifier(rabbitClient, appLogger.Logger),
		)
		appLogger.Info("Push channel enabled",
			slog.String("exchange", cfg.RabbitMQ.Exchange.Name),
		)
	}

	// Make sure the artifact directory exists before accepting uploads.
	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	registry := platform.NewRegistry()

	// Upload pool
	pool := worker.NewPool(&worker.Config{
		Logger:        appLogger.Logger,
		Store:         store,
		Uploaders:     platform.NewSimulatedUploaders(cfg.Upload.ChunkWait),
		Notifier:      notifier,
		Concurrency:   cfg.Upload.Concurrency,
		QueueCapacity: cfg.Upload.QueueCapacity,
		JobTimeout:    cfg.Upload.JobTimeout,
	})

	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()
	pool.Start(poolCtx)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, store, registry, pool, notifier)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	// In-flight uploads settle before connections are torn down.
	poolCancel()
	pool.Stop()

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initStore selects the job store backend. The PostgreSQL client is
// returned so the caller can close it on shutdown; it is nil for the
// in-memory driver.
func initStore(cfg *config.Config, logger *slog.Logger) (queue.Store, *postgresql.Client, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		dbClient, err := postgresql.NewClient(&postgresql.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		if err := dbClient.HealthCheck(context.Background()); err != nil {
			dbClient.Close()
			return nil, nil, err
		}

		store, err := postgres.NewStore(context.Background(), dbClient, cfg.Upload.MaxFileSize, logger)
		if err != nil {
			dbClient.Close()
			return nil, nil, err
		}
		return store, dbClient, nil

	default:
		return queue.NewMemoryStore(cfg.Upload.MaxFileSize, logger), nil, nil
	}
}

// initRabbitMQ initializes the RabbitMQ client for the push channel
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		ExchangeName:      cfg.Exchange.Name,
		ExchangeDurable:   cfg.Exchange.Durable,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		PublishRetries:    cfg.Publish.RetryAttempts,
		PublishRetryDelay: cfg.Publish.RetryInterval,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, store queue.Store, registry *platform.Registry, pool *worker.Pool, notifier notify.Notifier) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:        logger,
		Store:         store,
		Publisher:     publisher.New(store, registry),
		Platforms:     registry,
		Dispatcher:    pool,
		Notifier:      notifier,
		UploadDir:     cfg.Upload.Dir,
		MaxUploadSize: cfg.Upload.MaxFileSize,
	}

	return router.SetupRouter(handlerDeps)
}
