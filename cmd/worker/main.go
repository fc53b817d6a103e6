package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/papelisco/storefront/internal/notifications"
	"github.com/papelisco/storefront/internal/users"
	"github.com/papelisco/storefront/pkg/config"
	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/instance"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/rabbit"
	"github.com/papelisco/storefront/pkg/redis"
)

const serviceName = "worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"instance":    instance.ID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	broker, err := rabbit.Connect(ctx, cfg.RabbitMQ, logg)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logg.Error(context.Background(), "error closing rabbitmq", err)
		}
	}()

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Users:  users.NewRepository(dbClient.DB()),
		Sender: notifications.LogSender{Logger: logg},
		Dedupe: redisClient,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	deliveries, err := rabbit.Consume(broker.Channel(), cfg.RabbitMQ.OrderQueue, serviceName, cfg.RabbitMQ.Prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.RabbitMQ.OrderQueue, err)
	}

	logg.Info(logg.WithField(ctx, "queue", cfg.RabbitMQ.OrderQueue), "starting order notifications worker")
	return consumer.Run(ctx, deliveries)
}
