package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ctpipe/uploadq/internal/config"
	"github.com/ctpipe/uploadq/internal/monitor"
	"github.com/ctpipe/uploadq/internal/notify"
	"github.com/ctpipe/uploadq/shared/logger"
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
	defaultConfigPath := os.Getenv("MONITOR_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/monitor/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateMonitorConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting monitor",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("api_base_url", cfg.Monitor.APIBaseURL),
	)

	client, err := monitor.NewClient(cfg.Monitor.APIBaseURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	mon := monitor.New(client, monitor.Intervals{
		Queue:        cfg.Poll.QueueInterval,
		Stats:        cfg.Poll.StatsInterval,
		Platforms:    cfg.Poll.PlatformsInterval,
		FetchTimeout: cfg.Poll.FetchTimeout,
	}, appLogger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional push channel: events arrive between polls and are logged
	// as they happen. Polling stays authoritative either way.
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			appLogger.Warn("Push channel unavailable, continuing with polling only",
				slog.Any("error", err),
			)
		} else {
			defer rabbitClient.Close()
			go consumePushEvents(ctx, rabbitClient, mon, appLogger.Logger)
		}
	}

	appLogger.Info("Monitor is running",
		slog.Duration("queue_interval", cfg.Poll.QueueInterval),
		slog.Duration("stats_interval", cfg.Poll.StatsInterval),
		slog.Duration("platforms_interval", cfg.Poll.PlatformsInterval),
	)

	mon.Run(ctx, cfg.Poll.RenderInterval)

	appLogger.Info("Monitor shutdown complete")
	return nil
}

// consumePushEvents logs events from the fanout exchange and nudges the
// pollers so the views catch up ahead of the next scheduled tick.
func consumePushEvents(ctx context.Context, client *rabbitmq.Client, mon *monitor.Monitor, logger *slog.Logger) {
	deliveries, err := client.Subscribe("uploadq-monitor")
	if err != nil {
		logger.Warn("Failed to subscribe to push events",
			slog.Any("error", err),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				logger.Warn("Push event stream closed")
				return
			}

			var event notify.Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				logger.Warn("Discarding undecodable push event",
					slog.Any("error", err),
				)
				continue
			}

			logger.Info("Push event",
				slog.String("type", event.Type),
				slog.String("job_id", event.JobID),
			)
			mon.Refetch()
		}
	}
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
