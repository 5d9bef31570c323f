package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"slotwise/internal/dispatch"
	"slotwise/pkg/config"
	"slotwise/pkg/kafka"
	kafka_config "slotwise/pkg/kafka/config"
	kafka_middleware "slotwise/pkg/kafka/middleware"
)

const ServiceName = "dispatcher"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Client.SetCollaborators(cfg.IdentityBaseURL, cfg.PaymentBaseURL, cfg.NotificationBaseURL)

	cfg.Log.Info("Starting intent dispatcher")

	dispatcher := dispatch.NewDispatcher(cfg.Client.Payment, cfg.Client.Notification, cfg.Log)

	kafkaCfg := kafka_config.Load()
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.IntentTopic, cfg.DispatcherGroupID, cfg.IntentDLQTopic, dispatcher.Handle)
	if err != nil {
		cfg.Log.Fatal("Failed to create intent consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Dispatcher consuming intents",
		"topic", cfg.IntentTopic,
		"group_id", cfg.DispatcherGroupID,
		"dlq_topic", cfg.IntentDLQTopic,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Dispatcher stopped gracefully")
}
